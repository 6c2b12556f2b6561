package chat

import "time"

// DefaultCooldown is the minimum interval between find requests per user.
const DefaultCooldown = 10 * time.Second

// CooldownTracker remembers the last find request per user and rejects
// requests arriving inside the configured window. It applies only to the
// find action; plain relay messages and stop are never throttled.
type CooldownTracker struct {
	last map[string]time.Time
}

// NewCooldownTracker returns an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{last: make(map[string]time.Time)}
}

// Allow reports whether id may issue a find request at now. An allowed
// request records now as the new timestamp; a rejected request leaves the
// previous timestamp untouched so the window is not extended by retries.
func (t *CooldownTracker) Allow(id string, now time.Time, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	if last, ok := t.last[id]; ok && now.Sub(last) < window {
		return false
	}
	t.last[id] = now
	return true
}
