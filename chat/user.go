// Package chat implements the matchmaking and relay state machine for the
// anonymous chat bot: user records, the FIFO wait queue, the per-user find
// cooldown, and the session coordinator that drives every transition.
// It never talks to Telegram directly; the transport delivers inbound events
// and renders outbound messages through the Sender contract.
package chat

import "context"

// User is the durable record kept per Telegram user.
// Invariant: Connected == (PartnerID != ""). Partnering is symmetric: when
// users[a].PartnerID == b and both records exist, users[b].PartnerID == a.
type User struct {
	ID         string `db:"id" json:"id"`
	Connected  bool   `db:"connected" json:"isConnected"`
	PartnerID  string `db:"partner_id" json:"partner,omitempty"`
	Registered bool   `db:"registered" json:"registered,omitempty"`
}

// Store provides lookup and persistence for user records. The coordinator is
// the only mutator of records; implementations only load, insert and flush.
type Store interface {
	// Get returns the existing record for id, if any.
	Get(id string) (*User, bool)
	// Ensure returns the record for id, creating and persisting a default
	// record when absent. Idempotent.
	Ensure(id string) *User
	// Persist flushes all records to the durable backend. Best effort: a
	// failure is reported but in-memory state is not rolled back.
	Persist() error
}

// UIHint describes which button set should accompany an outbound message.
// The transport renders it in its native UI idiom; the core never builds
// keyboards itself.
type UIHint int

const (
	// HintNone sends plain text with no keyboard change.
	HintNone UIHint = iota
	// HintHome accompanies the welcome/home prompt.
	HintHome
	// HintConnected accompanies messages sent while paired.
	HintConnected
	// HintPersistent requests the persistent Find/Stop reply keyboard.
	HintPersistent
)

// Sender delivers outbound text to a user. Implemented by the Telegram
// transport; tests supply a recording fake.
type Sender interface {
	SendText(ctx context.Context, userID, text string, hint UIHint) error
}
