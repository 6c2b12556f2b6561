package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TG-16/anonymous-telegram-bot/chat"
)

func TestOpenLoadsExistingRecords(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.SaveAll(context.Background(), map[string]*chat.User{
		"u1": {ID: "u1", Registered: true},
		"u2": {ID: "u2", Connected: true, PartnerID: "u1"},
	}))

	users, err := Open(context.Background(), mem)
	require.NoError(t, err)
	require.Equal(t, 2, users.Len())

	u2, ok := users.Get("u2")
	require.True(t, ok)
	require.True(t, u2.Connected)
	require.Equal(t, "u1", u2.PartnerID)
}

func TestOpenPropagatesLoadErrors(t *testing.T) {
	_, err := Open(context.Background(), failingBackend{err: errors.New("load boom")})
	require.Error(t, err)
}

func TestEnsureCreatesOnce(t *testing.T) {
	mem := NewMemory()
	users, err := Open(context.Background(), mem)
	require.NoError(t, err)

	first := users.Ensure("u1")
	require.Equal(t, "u1", first.ID)
	require.False(t, first.Connected)

	savesAfterCreate := mem.Saves()
	require.Positive(t, savesAfterCreate)

	second := users.Ensure("u1")
	require.Same(t, first, second)
	require.Equal(t, savesAfterCreate, mem.Saves())
}

func TestPersistSnapshotsCurrentState(t *testing.T) {
	mem := NewMemory()
	users, err := Open(context.Background(), mem)
	require.NoError(t, err)

	u := users.Ensure("u1")
	u.Connected = true
	u.PartnerID = "u2"
	require.NoError(t, users.Persist())

	stored, err := mem.LoadAll(context.Background())
	require.NoError(t, err)
	require.True(t, stored["u1"].Connected)
	require.Equal(t, "u2", stored["u1"].PartnerID)
}

func TestPersistWrapsBackendError(t *testing.T) {
	mem := NewMemory()
	users, err := Open(context.Background(), mem)
	require.NoError(t, err)

	users.Ensure("u1")
	mem.FailSaves(errors.New("save boom"))
	require.ErrorContains(t, users.Persist(), "save users")
}

func TestCloseFlushesBeforeClosing(t *testing.T) {
	mem := NewMemory()
	users, err := Open(context.Background(), mem)
	require.NoError(t, err)

	u := users.Ensure("u1")
	before := mem.Saves()
	u.Registered = true
	require.NoError(t, users.Close())
	require.Greater(t, mem.Saves(), before)

	stored, err := mem.LoadAll(context.Background())
	require.NoError(t, err)
	require.True(t, stored["u1"].Registered)
}

type failingBackend struct {
	err error
}

func (f failingBackend) LoadAll(context.Context) (map[string]*chat.User, error) {
	return nil, f.err
}

func (f failingBackend) SaveAll(context.Context, map[string]*chat.User) error {
	return f.err
}

func (f failingBackend) Close() error { return nil }
