package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classworks/gradeflow/internal/submission"
	"github.com/classworks/gradeflow/pkg/ai"
)

type stubGrader struct {
	calls int
	fn    func(call int, input ai.GradingInput) (ai.ModelResponse, error)
}

func (s *stubGrader) Grade(_ context.Context, input ai.GradingInput) (ai.ModelResponse, error) {
	s.calls++
	return s.fn(s.calls, input)
}

func (s *stubGrader) Ping(context.Context) error { return nil }

func okResponse(score, confidence float64) ai.ModelResponse {
	return ai.ModelResponse{
		TotalScore: score,
		Feedback:   "solid work overall",
		Confidence: confidence,
	}
}

func passthroughAdapter() *submission.Adapter {
	return submission.NewAdapter(func(path string) (string, bool) {
		return "submission text from " + path, true
	}, zerolog.Nop())
}

func testSubs(identities ...string) []submission.Submission {
	subs := make([]submission.Submission, 0, len(identities))
	for _, id := range identities {
		subs = append(subs, submission.Submission{Identity: id, SourcePath: id + ".pdf"})
	}
	return subs
}

func newTestScheduler(grader ai.Grader, adapter *submission.Adapter, cfg Config) *Scheduler {
	if cfg.MaxScore == 0 {
		cfg.MaxScore = 100
	}
	s := NewScheduler(grader, adapter, NewClassifier(0.7, nil), cfg, nil, zerolog.Nop())
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestSchedulerGradesEverySubmission(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}}

	run := NewRun("essay-1", 2, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 2})

	err := sched.Run(context.Background(), run, testSubs("anderson", "smith", "zhang"))
	require.NoError(t, err)

	results := run.Sink.Results()
	require.Len(t, results, 3)
	for i, id := range []string{"anderson", "smith", "zhang"} {
		require.Equal(t, id, results[i].Identity)
		require.Equal(t, 85.0, results[i].TotalScore)
		require.Equal(t, 85.0, results[i].Percentage)
		require.Equal(t, "B", results[i].LetterGrade)
		require.False(t, results[i].Flagged)
	}
	require.Empty(t, run.Sink.Flagged())
	require.Equal(t, 3, grader.calls)
}

func TestSchedulerAppliesDelayBetweenBatchesOnly(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}}

	var sleeps []time.Duration
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 2, DelayBetweenBatches: 5 * time.Second})
	sched.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	run := NewRun("essay-1", 2, 0)
	require.NoError(t, sched.Run(context.Background(), run, testSubs("a", "b", "c")))

	// 2 batches: one pause between them, none after the last.
	require.Equal(t, []time.Duration{5 * time.Second}, sleeps)
}

func TestSchedulerRetriesTransientUntilExhausted(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return ai.ModelResponse{}, &ai.TransientError{Reason: ai.TransientRateLimited, Err: errors.New("429")}
	}}

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 10, MaxRetries: 2})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("smith")))

	require.Equal(t, 3, grader.calls)

	results := run.Sink.Results()
	require.Len(t, results, 1)
	require.Equal(t, ErrorKindExhausted, results[0].ErrorKind)
	require.Zero(t, results[0].Confidence)
	require.True(t, results[0].Flagged)
	require.Len(t, run.Sink.Flagged(), 1)

	var actions []AuditAction
	for _, e := range run.Sink.Audit() {
		actions = append(actions, e.Action)
	}
	require.Equal(t, []AuditAction{ActionExtracted, ActionRetried, ActionRetried, ActionFailed, ActionFlagged}, actions)
}

func TestSchedulerExtractionFailureSkipsModelCall(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}}
	adapter := submission.NewAdapter(func(path string) (string, bool) {
		return "", path != "broken.pdf"
	}, zerolog.Nop())

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, adapter, Config{BatchSize: 10})
	require.NoError(t, sched.Run(context.Background(), run, []submission.Submission{
		{Identity: "broken", SourcePath: "broken.pdf"},
	}))

	require.Zero(t, grader.calls)

	results := run.Sink.Results()
	require.Len(t, results, 1)
	require.Equal(t, ErrorKindExtractionFailed, results[0].ErrorKind)
	require.Zero(t, results[0].Confidence)
	require.False(t, results[0].IntegrityFlag)
	require.True(t, results[0].Flagged)
}

func TestSchedulerTerminalAuthNotRetried(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return ai.ModelResponse{}, &ai.TerminalError{Kind: ai.TerminalAuth, Err: errors.New("401")}
	}}

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 10, MaxRetries: 5})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("smith", "zhang")))

	// One call per submission, no retries, and the run keeps going.
	require.Equal(t, 2, grader.calls)
	results := run.Sink.Results()
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, ErrorKindAuthError, r.ErrorKind)
		require.True(t, r.Flagged)
	}
}

func TestSchedulerSchemaViolationIsRetried(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return ai.ModelResponse{}, &ai.TerminalError{Kind: ai.TerminalSchemaViolation, Err: errors.New("bad json")}
	}}

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 10, MaxRetries: 1})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("smith")))

	require.Equal(t, 2, grader.calls)
	results := run.Sink.Results()
	require.Len(t, results, 1)
	require.Equal(t, ErrorKindSchemaViolation, results[0].ErrorKind)
}

func TestSchedulerSchemaViolationThenSuccess(t *testing.T) {
	grader := &stubGrader{fn: func(call int, _ ai.GradingInput) (ai.ModelResponse, error) {
		if call == 1 {
			return ai.ModelResponse{}, &ai.TerminalError{Kind: ai.TerminalSchemaViolation, Err: errors.New("truncated")}
		}
		return okResponse(92, 0.95), nil
	}}

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 10, MaxRetries: 2})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("smith")))

	results := run.Sink.Results()
	require.Len(t, results, 1)
	require.Equal(t, ErrorKindNone, results[0].ErrorKind)
	require.Equal(t, "A", results[0].LetterGrade)
}

func TestSchedulerResumeMatchesFreshRun(t *testing.T) {
	deterministic := func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}
	subs := testSubs("a", "b", "c", "d", "e")

	fresh := NewRun("essay-1", 2, 0)
	require.NoError(t, newTestScheduler(&stubGrader{fn: deterministic}, passthroughAdapter(), Config{BatchSize: 2}).
		Run(context.Background(), fresh, subs))

	resumed := NewRun("essay-1", 2, 2)
	resumedGrader := &stubGrader{fn: deterministic}
	require.NoError(t, newTestScheduler(resumedGrader, passthroughAdapter(), Config{BatchSize: 2, StartOffset: 2}).
		Run(context.Background(), resumed, subs))

	require.Equal(t, fresh.Sink.Results()[2:], resumed.Sink.Results())
	require.Equal(t, 3, resumedGrader.calls)
}

func TestSchedulerStartOffsetBeyondEnd(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}}

	run := NewRun("essay-1", 2, 10)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 2, StartOffset: 10})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("a", "b")))

	require.Empty(t, run.Sink.Results())
	require.Zero(t, grader.calls)
}

func TestSchedulerDryRunProducesSyntheticResults(t *testing.T) {
	run := NewRun("essay-1", 2, 0)
	sched := newTestScheduler(ai.NewDryRunGrader(), passthroughAdapter(), Config{BatchSize: 2})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("a", "b", "c", "d", "e")))

	results := run.Sink.Results()
	require.Len(t, results, 5)
	for _, r := range results {
		require.True(t, r.DryRun)
		require.True(t, strings.HasPrefix(r.Feedback, "[DRY RUN]"))
		require.Equal(t, 88.0, r.TotalScore)
	}
}

func TestSchedulerReportsProgress(t *testing.T) {
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		return okResponse(85, 0.9), nil
	}}

	var recorded []int
	reporter := progressFunc(func(_ context.Context, _ string, completed int) {
		recorded = append(recorded, completed)
	})

	cfg := Config{Assignment: "essay-1", BatchSize: 2, StartOffset: 1, MaxScore: 100}
	sched := NewScheduler(grader, passthroughAdapter(), NewClassifier(0.7, nil), cfg, reporter, zerolog.Nop())
	sched.sleep = func(context.Context, time.Duration) error { return nil }

	run := NewRun("essay-1", 2, 1)
	require.NoError(t, sched.Run(context.Background(), run, testSubs("a", "b", "c", "d")))

	require.Equal(t, []int{2, 3, 4}, recorded)
}

type progressFunc func(ctx context.Context, assignment string, completed int)

func (f progressFunc) Record(ctx context.Context, assignment string, completed int) {
	f(ctx, assignment, completed)
}

func TestSchedulerStopsBetweenSubmissionsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	grader := &stubGrader{fn: func(int, ai.GradingInput) (ai.ModelResponse, error) {
		cancel()
		return okResponse(85, 0.9), nil
	}}

	run := NewRun("essay-1", 10, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 10})
	err := sched.Run(ctx, run, testSubs("a", "b", "c"))

	require.ErrorIs(t, err, context.Canceled)
	// The in-flight submission completed; the rest were never started.
	require.Len(t, run.Sink.Results(), 1)
	require.Equal(t, 1, grader.calls)
}

func TestSchedulerAuditIsTotallyOrdered(t *testing.T) {
	grader := &stubGrader{fn: func(call int, _ ai.GradingInput) (ai.ModelResponse, error) {
		if call%2 == 1 {
			return ai.ModelResponse{}, &ai.TransientError{Reason: ai.TransientTimeout, Err: errors.New("timeout")}
		}
		return okResponse(70, 0.9), nil
	}}

	run := NewRun("essay-1", 2, 0)
	sched := newTestScheduler(grader, passthroughAdapter(), Config{BatchSize: 2, MaxRetries: 2})
	require.NoError(t, sched.Run(context.Background(), run, testSubs("a", "b", "c")))

	audit := run.Sink.Audit()
	require.NotEmpty(t, audit)
	for i, e := range audit {
		require.Equal(t, i, e.Seq, fmt.Sprintf("entry %d out of order", i))
	}
}
