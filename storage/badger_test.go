package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TG-16/anonymous-telegram-bot/chat"
)

func TestBadgerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBadger(dir)
	require.NoError(t, err)

	in := map[string]*chat.User{
		"u1": {ID: "u1", Connected: true, PartnerID: "u2", Registered: true},
		"u2": {ID: "u2", Connected: true, PartnerID: "u1"},
	}
	require.NoError(t, b.SaveAll(context.Background(), in))
	require.NoError(t, b.Close())

	b, err = OpenBadger(dir)
	require.NoError(t, err)
	defer b.Close()

	out, err := b.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, in["u1"], out["u1"])
	require.Equal(t, in["u2"], out["u2"])
}

func TestBadgerLoadAllEmpty(t *testing.T) {
	b, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer b.Close()

	out, err := b.LoadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestBadgerSaveAllOverwrites(t *testing.T) {
	b, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.SaveAll(ctx, map[string]*chat.User{
		"u1": {ID: "u1", Connected: true, PartnerID: "u2"},
	}))
	require.NoError(t, b.SaveAll(ctx, map[string]*chat.User{
		"u1": {ID: "u1"},
	}))

	out, err := b.LoadAll(ctx)
	require.NoError(t, err)
	require.False(t, out["u1"].Connected)
	require.Empty(t, out["u1"].PartnerID)
}
