package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/TG-16/anonymous-telegram-bot/logger"
)

// State describes a user's position in the pairing lifecycle.
type State string

const (
	// StateIdle means the user is neither paired nor queued.
	StateIdle State = "idle"
	// StateWaiting means the user sits in the wait queue.
	StateWaiting State = "waiting"
	// StateConnected means the user is paired with a partner.
	StateConnected State = "connected"
)

// Config tunes coordinator policy.
type Config struct {
	// Cooldown is the minimum interval between find requests per user.
	// Zero selects DefaultCooldown; negative disables the cooldown.
	Cooldown time.Duration
	// AccountsRequired gates find/stop/relay behind /signup when set.
	AccountsRequired bool
	// Now overrides the clock, used by tests. Nil selects time.Now.
	Now func() time.Time
}

// Coordinator is the session state machine. It owns the wait queue and the
// cooldown map, and is the sole mutator of user records. Every event handler
// runs under one mutex so a pairing transition always completes atomically
// before the next event is processed, preserving partner symmetry even when
// the transport delivers updates concurrently.
type Coordinator struct {
	mu       sync.Mutex
	store    Store
	sender   Sender
	match    *Matchmaker
	cooldown *CooldownTracker
	cfg      Config
}

// NewCoordinator wires the state machine with its collaborators.
func NewCoordinator(store Store, sender Sender, cfg Config) *Coordinator {
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		store:    store,
		sender:   sender,
		match:    NewMatchmaker(),
		cooldown: NewCooldownTracker(),
		cfg:      cfg,
	}
}

// OnStart handles first contact: it ensures a record exists and sends the
// welcome prompt with the home controls.
func (co *Coordinator) OnStart(ctx context.Context, id string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	co.store.Ensure(id)
	return co.sender.SendText(ctx, id, MsgWelcome, HintHome)
}

// OnFind handles a match request: cooldown and already-connected rejections
// first, then the matchmaker either pairs the requester with the oldest
// waiting user or queues them.
func (co *Coordinator) OnFind(ctx context.Context, id string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	u := co.store.Ensure(id)
	if co.gated(u) {
		return co.sender.SendText(ctx, id, MsgSignupFirst, HintHome)
	}

	if !co.cooldown.Allow(id, co.cfg.Now(), co.cfg.Cooldown) {
		return co.sender.SendText(ctx, id, MsgCooldown, HintPersistent)
	}

	if u.Connected {
		return co.sender.SendText(ctx, id, MsgAlreadyConnected, HintPersistent)
	}

	partnerID, found := co.match.FindOrQueue(id, func(candidate string) bool {
		rec, ok := co.store.Get(candidate)
		return ok && !rec.Connected && co.eligible(rec)
	})
	if !found {
		logger.Debug(ctx, "chat", "find.queued",
			slog.String("uid", id),
			slog.Int("queue_len", co.match.Len()),
		)
		return co.sender.SendText(ctx, id, MsgWaiting, HintPersistent)
	}

	partner, _ := co.store.Get(partnerID)
	u.Connected = true
	u.PartnerID = partnerID
	partner.Connected = true
	partner.PartnerID = id
	co.persist(ctx)

	logger.Info(ctx, "chat", "find.matched",
		slog.String("uid", id),
		slog.String("partner_id", partnerID),
		slog.Int("queue_len", co.match.Len()),
	)

	return errors.Join(
		co.sender.SendText(ctx, id, MsgConnected, HintConnected),
		co.sender.SendText(ctx, partnerID, MsgConnected, HintConnected),
	)
}

// OnStop ends the current chat. Both sides return to idle with cleared
// partner references; the former partner is notified when its record still
// exists.
func (co *Coordinator) OnStop(ctx context.Context, id string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	u := co.store.Ensure(id)
	if co.gated(u) {
		return co.sender.SendText(ctx, id, MsgSignupFirst, HintHome)
	}

	if !u.Connected {
		return co.sender.SendText(ctx, id, MsgNotConnected, HintPersistent)
	}

	partnerID := u.PartnerID
	u.Connected = false
	u.PartnerID = ""

	var notifyPartner bool
	if partner, ok := co.store.Get(partnerID); ok {
		partner.Connected = false
		partner.PartnerID = ""
		notifyPartner = true
	}
	co.persist(ctx)

	logger.Info(ctx, "chat", "stop",
		slog.String("uid", id),
		slog.String("partner_id", partnerID),
	)

	errs := []error{co.sender.SendText(ctx, id, MsgDisconnected, HintPersistent)}
	if notifyPartner {
		errs = append(errs, co.sender.SendText(ctx, partnerID, MsgPartnerDisconnected, HintPersistent))
	}
	return errors.Join(errs...)
}

// OnMessage relays plain text to the partner. Command-marked text is ignored
// here; the transport routes commands before relay. A missing or already
// disconnected partner is the expected stale-partner path: the sender's side
// is cleaned up and informed, nothing is forwarded.
func (co *Coordinator) OnMessage(ctx context.Context, id, text string) error {
	if strings.HasPrefix(text, "/") {
		return nil
	}

	co.mu.Lock()
	defer co.mu.Unlock()

	u := co.store.Ensure(id)
	if co.gated(u) {
		return co.sender.SendText(ctx, id, MsgSignupFirst, HintHome)
	}

	if !u.Connected {
		return co.sender.SendText(ctx, id, MsgIdleRelay, HintPersistent)
	}

	partnerID := u.PartnerID
	partner, ok := co.store.Get(partnerID)
	if !ok || !partner.Connected || partner.PartnerID != id {
		u.Connected = false
		u.PartnerID = ""
		co.persist(ctx)
		logger.Warn(ctx, "chat", "relay.partner_gone",
			slog.String("uid", id),
			slog.String("partner_id", partnerID),
		)
		return co.sender.SendText(ctx, id, MsgPartnerGone, HintPersistent)
	}

	return co.sender.SendText(ctx, partnerID, text, HintNone)
}

// OnSignup marks the record registered. Calling it again answers with a
// notice and mutates nothing.
func (co *Coordinator) OnSignup(ctx context.Context, id string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	u := co.store.Ensure(id)
	if u.Registered {
		return co.sender.SendText(ctx, id, MsgSignupAlready, HintHome)
	}
	u.Registered = true
	co.persist(ctx)
	logger.Info(ctx, "chat", "signup", slog.String("uid", id))
	return co.sender.SendText(ctx, id, MsgSignupDone, HintHome)
}

// OnLogin surfaces the home prompt for registered users and instructs
// everyone else to sign up first. It never touches state.
func (co *Coordinator) OnLogin(ctx context.Context, id string) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	u, ok := co.store.Get(id)
	if !ok || !u.Registered {
		return co.sender.SendText(ctx, id, MsgLoginNoAcct, HintHome)
	}
	return co.sender.SendText(ctx, id, MsgLoginOK, HintHome)
}

// StateOf reports the lifecycle state of a user, for diagnostics and tests.
func (co *Coordinator) StateOf(id string) State {
	co.mu.Lock()
	defer co.mu.Unlock()

	if u, ok := co.store.Get(id); ok && u.Connected {
		return StateConnected
	}
	if co.match.Waiting(id) {
		return StateWaiting
	}
	return StateIdle
}

// gated reports whether policy blocks this record from chat actions.
func (co *Coordinator) gated(u *User) bool {
	return co.cfg.AccountsRequired && !u.Registered
}

// eligible mirrors gated for match candidates looked up by handle.
func (co *Coordinator) eligible(u *User) bool {
	return !co.cfg.AccountsRequired || u.Registered
}

// persist flushes the store and downgrades failures to a log line; serving
// continues from in-memory state.
func (co *Coordinator) persist(ctx context.Context) {
	if err := co.store.Persist(); err != nil {
		logger.Error(ctx, "chat", "store.persist",
			slog.String("err", err.Error()),
		)
	}
}
