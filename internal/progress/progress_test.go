package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T) *Tracker {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTracker(client, zerolog.Nop())
}

func TestTrackerRoundTrip(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	_, ok := tracker.Suggest(ctx, "essay-1")
	require.False(t, ok)

	tracker.Record(ctx, "essay-1", 7)
	completed, ok := tracker.Suggest(ctx, "essay-1")
	require.True(t, ok)
	require.Equal(t, 7, completed)
}

func TestTrackerIsolatesAssignments(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	tracker.Record(ctx, "essay-1", 3)
	tracker.Record(ctx, "lab-2", 9)

	completed, ok := tracker.Suggest(ctx, "essay-1")
	require.True(t, ok)
	require.Equal(t, 3, completed)
}

func TestTrackerClear(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	tracker.Record(ctx, "essay-1", 4)
	tracker.Clear(ctx, "essay-1")

	_, ok := tracker.Suggest(ctx, "essay-1")
	require.False(t, ok)
}
