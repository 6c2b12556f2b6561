package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/storage"
)

type sentMsg struct {
	to   string
	text string
	hint chat.UIHint
}

type fakeSender struct {
	sent []sentMsg
	err  error
}

func (f *fakeSender) SendText(_ context.Context, userID, text string, hint chat.UIHint) error {
	f.sent = append(f.sent, sentMsg{to: userID, text: text, hint: hint})
	return f.err
}

func (f *fakeSender) sentTo(id string) []sentMsg {
	var out []sentMsg
	for _, m := range f.sent {
		if m.to == id {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) last() sentMsg {
	if len(f.sent) == 0 {
		return sentMsg{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFixture(t *testing.T, cfg chat.Config) (*chat.Coordinator, *storage.Users, *storage.Memory, *fakeSender, *fakeClock) {
	t.Helper()

	mem := storage.NewMemory()
	users, err := storage.Open(context.Background(), mem)
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })

	clock := &fakeClock{now: time.Unix(10_000, 0)}
	cfg.Now = clock.Now

	sender := &fakeSender{}
	co := chat.NewCoordinator(users, sender, cfg)
	return co, users, mem, sender, clock
}

func pair(t *testing.T, co *chat.Coordinator, clock *fakeClock, a, b string) {
	t.Helper()
	require.NoError(t, co.OnFind(context.Background(), a))
	require.NoError(t, co.OnFind(context.Background(), b))
	require.Equal(t, chat.StateConnected, co.StateOf(a))
	require.Equal(t, chat.StateConnected, co.StateOf(b))
	clock.Advance(chat.DefaultCooldown)
}

func TestOnStartSendsWelcome(t *testing.T) {
	co, users, _, sender, _ := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnStart(ctx, "u1"))

	require.Len(t, sender.sent, 1)
	require.Equal(t, chat.MsgWelcome, sender.sent[0].text)
	require.Equal(t, chat.HintHome, sender.sent[0].hint)

	_, ok := users.Get("u1")
	require.True(t, ok)
}

func TestFindQueuesFirstRequester(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})

	require.NoError(t, co.OnFind(context.Background(), "u1"))

	require.Equal(t, chat.StateWaiting, co.StateOf("u1"))
	require.Equal(t, chat.MsgWaiting, sender.last().text)
}

func TestFindPairsTwoUsersSymmetrically(t *testing.T) {
	co, users, mem, sender, _ := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnFind(ctx, "u1"))
	require.NoError(t, co.OnFind(ctx, "u2"))

	u1, _ := users.Get("u1")
	u2, _ := users.Get("u2")
	require.True(t, u1.Connected)
	require.True(t, u2.Connected)
	require.Equal(t, "u2", u1.PartnerID)
	require.Equal(t, "u1", u2.PartnerID)

	require.Equal(t, []sentMsg{
		{to: "u1", text: chat.MsgWaiting, hint: chat.HintPersistent},
		{to: "u2", text: chat.MsgConnected, hint: chat.HintConnected},
		{to: "u1", text: chat.MsgConnected, hint: chat.HintConnected},
	}, sender.sent)

	require.Positive(t, mem.Saves())
}

func TestFindRejectedInsideCooldown(t *testing.T) {
	co, _, _, sender, clock := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnFind(ctx, "u1"))
	clock.Advance(3 * time.Second)
	require.NoError(t, co.OnFind(ctx, "u1"))

	require.Equal(t, chat.MsgCooldown, sender.last().text)
	require.Equal(t, chat.StateWaiting, co.StateOf("u1"))
}

func TestFindAllowedAfterCooldown(t *testing.T) {
	co, _, _, sender, clock := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnFind(ctx, "u1"))
	clock.Advance(chat.DefaultCooldown)
	require.NoError(t, co.OnFind(ctx, "u1"))

	require.Equal(t, chat.MsgWaiting, sender.last().text)
}

func TestFindWhileConnected(t *testing.T) {
	co, _, _, sender, clock := newFixture(t, chat.Config{})
	pair(t, co, clock, "u1", "u2")

	require.NoError(t, co.OnFind(context.Background(), "u1"))

	require.Equal(t, chat.MsgAlreadyConnected, sender.last().text)
	require.Equal(t, chat.StateConnected, co.StateOf("u1"))
}

func TestStopDisconnectsBothSides(t *testing.T) {
	co, users, _, sender, clock := newFixture(t, chat.Config{})
	pair(t, co, clock, "u1", "u2")

	require.NoError(t, co.OnStop(context.Background(), "u1"))

	u1, _ := users.Get("u1")
	u2, _ := users.Get("u2")
	require.False(t, u1.Connected)
	require.False(t, u2.Connected)
	require.Empty(t, u1.PartnerID)
	require.Empty(t, u2.PartnerID)

	u1Msgs := sender.sentTo("u1")
	require.Equal(t, chat.MsgDisconnected, u1Msgs[len(u1Msgs)-1].text)
	u2Msgs := sender.sentTo("u2")
	require.Equal(t, chat.MsgPartnerDisconnected, u2Msgs[len(u2Msgs)-1].text)
}

func TestStopWhileIdle(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})

	require.NoError(t, co.OnStop(context.Background(), "u1"))

	require.Equal(t, chat.MsgNotConnected, sender.last().text)
}

func TestRelayForwardsTextToPartner(t *testing.T) {
	co, _, _, sender, clock := newFixture(t, chat.Config{})
	pair(t, co, clock, "u1", "u2")

	require.NoError(t, co.OnMessage(context.Background(), "u1", "hello there"))

	require.Equal(t, sentMsg{to: "u2", text: "hello there", hint: chat.HintNone}, sender.last())
}

func TestRelayWhileIdle(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})

	require.NoError(t, co.OnMessage(context.Background(), "u1", "anyone?"))

	require.Equal(t, chat.MsgIdleRelay, sender.last().text)
}

func TestRelayIgnoresCommandText(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})

	require.NoError(t, co.OnMessage(context.Background(), "u1", "/unknown"))

	require.Empty(t, sender.sent)
}

func TestRelayToVanishedPartnerCleansUp(t *testing.T) {
	co, users, _, sender, clock := newFixture(t, chat.Config{})
	pair(t, co, clock, "u1", "u2")

	users.Delete("u2")
	require.NoError(t, co.OnMessage(context.Background(), "u1", "still there?"))

	u1, _ := users.Get("u1")
	require.False(t, u1.Connected)
	require.Empty(t, u1.PartnerID)
	require.Equal(t, chat.MsgPartnerGone, sender.last().text)
	require.Equal(t, chat.StateIdle, co.StateOf("u1"))
}

func TestRelayToDesyncedPartnerCleansUp(t *testing.T) {
	co, users, _, sender, clock := newFixture(t, chat.Config{})
	pair(t, co, clock, "u1", "u2")

	// u2's record points elsewhere; u1's side is stale and must be reset.
	u2, _ := users.Get("u2")
	u2.PartnerID = "u3"

	require.NoError(t, co.OnMessage(context.Background(), "u1", "hello?"))

	u1, _ := users.Get("u1")
	require.False(t, u1.Connected)
	require.Equal(t, chat.MsgPartnerGone, sender.last().text)
}

func TestSignupIsIdempotent(t *testing.T) {
	co, users, _, sender, _ := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnSignup(ctx, "u1"))
	require.Equal(t, chat.MsgSignupDone, sender.last().text)

	require.NoError(t, co.OnSignup(ctx, "u1"))
	require.Equal(t, chat.MsgSignupAlready, sender.last().text)

	u, _ := users.Get("u1")
	require.True(t, u.Registered)
}

func TestLoginReportsAccountState(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})
	ctx := context.Background()

	require.NoError(t, co.OnLogin(ctx, "u1"))
	require.Equal(t, chat.MsgLoginNoAcct, sender.last().text)

	require.NoError(t, co.OnSignup(ctx, "u1"))
	require.NoError(t, co.OnLogin(ctx, "u1"))
	require.Equal(t, chat.MsgLoginOK, sender.last().text)
}

func TestAccountsRequiredGatesChatActions(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{AccountsRequired: true})
	ctx := context.Background()

	require.NoError(t, co.OnFind(ctx, "u1"))
	require.Equal(t, chat.MsgSignupFirst, sender.last().text)
	require.Equal(t, chat.StateIdle, co.StateOf("u1"))

	require.NoError(t, co.OnMessage(ctx, "u1", "hello"))
	require.Equal(t, chat.MsgSignupFirst, sender.last().text)

	require.NoError(t, co.OnSignup(ctx, "u1"))
	require.NoError(t, co.OnFind(ctx, "u1"))
	require.Equal(t, chat.MsgWaiting, sender.last().text)
}

func TestUnregisteredWaiterIsNotMatchedUnderGating(t *testing.T) {
	co, users, _, sender, clock := newFixture(t, chat.Config{AccountsRequired: true})
	ctx := context.Background()

	require.NoError(t, co.OnSignup(ctx, "u1"))
	require.NoError(t, co.OnFind(ctx, "u1"))

	// u1 loses registration after queueing; a fresh requester must skip it.
	u1, _ := users.Get("u1")
	u1.Registered = false

	require.NoError(t, co.OnSignup(ctx, "u2"))
	clock.Advance(chat.DefaultCooldown)
	require.NoError(t, co.OnFind(ctx, "u2"))

	require.Equal(t, chat.MsgWaiting, sender.last().text)
	require.Equal(t, chat.StateWaiting, co.StateOf("u2"))
}

func TestPersistFailureDoesNotFailServing(t *testing.T) {
	mem := storage.NewMemory()
	users, err := storage.Open(context.Background(), mem)
	require.NoError(t, err)

	sender := &fakeSender{}
	co := chat.NewCoordinator(users, sender, chat.Config{Cooldown: -1})
	ctx := context.Background()

	mem.FailSaves(errors.New("disk full"))
	require.NoError(t, co.OnFind(ctx, "u1"))
	require.NoError(t, co.OnFind(ctx, "u2"))

	require.Equal(t, chat.StateConnected, co.StateOf("u1"))
	require.Equal(t, chat.StateConnected, co.StateOf("u2"))
}

func TestSenderErrorsPropagate(t *testing.T) {
	co, _, _, sender, _ := newFixture(t, chat.Config{})
	sender.err = errors.New("telegram down")

	err := co.OnStart(context.Background(), "u1")
	require.Error(t, err)
}
