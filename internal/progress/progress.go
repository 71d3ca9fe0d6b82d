package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyTTL = 7 * 24 * time.Hour

// Tracker checkpoints how many submissions of an assignment have completed,
// so an interrupted run can suggest a start offset on the next invocation.
// It is advisory only; resumption correctness never depends on it.
type Tracker struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewTracker constructs a tracker on top of an established redis client.
func NewTracker(client *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		client: client,
		logger: logger.With().Str("component", "progress_tracker").Logger(),
	}
}

func key(assignment string) string {
	return fmt.Sprintf("gradeflow:progress:%s", assignment)
}

// Record stores the number of completed submissions for the assignment.
// Failures are logged and swallowed; checkpointing must never fail a run.
func (t *Tracker) Record(ctx context.Context, assignment string, completed int) {
	if err := t.client.Set(ctx, key(assignment), completed, keyTTL).Err(); err != nil {
		t.logger.Warn().Err(err).Str("assignment", assignment).Msg("failed to record progress")
	}
}

// Suggest returns the last recorded completion count, if any.
func (t *Tracker) Suggest(ctx context.Context, assignment string) (int, bool) {
	val, err := t.client.Get(ctx, key(assignment)).Result()
	if err != nil {
		if err != redis.Nil {
			t.logger.Warn().Err(err).Str("assignment", assignment).Msg("failed to read progress")
		}
		return 0, false
	}

	completed, err := strconv.Atoi(val)
	if err != nil || completed < 0 {
		return 0, false
	}
	return completed, true
}

// Clear removes the checkpoint for the assignment, typically after a run
// finishes cleanly.
func (t *Tracker) Clear(ctx context.Context, assignment string) {
	if err := t.client.Del(ctx, key(assignment)).Err(); err != nil {
		t.logger.Warn().Err(err).Str("assignment", assignment).Msg("failed to clear progress")
	}
}
