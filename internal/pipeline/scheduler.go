package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/classworks/gradeflow/internal/submission"
	"github.com/classworks/gradeflow/pkg/ai"
)

// Config holds the knobs for one scheduler invocation.
type Config struct {
	Assignment          string
	BatchSize           int
	StartOffset         int
	MaxRetries          int
	DelayBetweenBatches time.Duration
	MaxScore            float64
	Instructions        string
	RubricImage         []byte
}

// ProgressReporter receives the count of completed submissions after each one
// finishes. Implementations must tolerate a nil receiver being skipped.
type ProgressReporter interface {
	Record(ctx context.Context, assignment string, completed int)
}

// Scheduler is the orchestration core. It partitions the ordered submission
// sequence into batches, drives each submission through extraction, grading
// with retries, and classification, and appends everything to the run's sink.
// Processing is strictly sequential so the audit trail is totally ordered.
type Scheduler struct {
	grader     ai.Grader
	adapter    *submission.Adapter
	classifier *Classifier
	cfg        Config
	progress   ProgressReporter
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewScheduler constructs a scheduler. progress may be nil.
func NewScheduler(grader ai.Grader, adapter *submission.Adapter, classifier *Classifier, cfg Config, progress ProgressReporter, logger zerolog.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.StartOffset < 0 {
		cfg.StartOffset = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Scheduler{
		grader:     grader,
		adapter:    adapter,
		classifier: classifier,
		cfg:        cfg,
		progress:   progress,
		logger:     logger.With().Str("component", "batch_scheduler").Logger(),
		sleep:      sleepWithContext,
	}
}

// Run processes subs[cfg.StartOffset:] in consecutive batches. Every targeted
// submission yields exactly one result in the sink; per-submission failures
// never stop the run. Run returns an error only when the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, run *Run, subs []submission.Submission) error {
	offset := s.cfg.StartOffset
	if offset > len(subs) {
		offset = len(subs)
	}
	pending := subs[offset:]
	batches := partition(pending, s.cfg.BatchSize)

	s.logger.Info().
		Str("run_id", run.ID).
		Int("total", len(subs)).
		Int("pending", len(pending)).
		Int("batches", len(batches)).
		Int("start_offset", offset).
		Msg("starting batch run")

	completed := offset
	for bi, batch := range batches {
		for _, sub := range batch {
			// Cancellation is coarse: the run stops between submissions and
			// an in-flight attempt is simply re-attempted on resume.
			if err := ctx.Err(); err != nil {
				return err
			}

			result := s.process(ctx, run, sub)
			result = s.classifier.Classify(result)
			run.Sink.addResult(result)
			if result.Flagged {
				run.Sink.addFlagged(result)
				run.Sink.appendAudit(result.Identity, ActionFlagged, result.FlagReason)
			}

			completed++
			if s.progress != nil {
				s.progress.Record(ctx, s.cfg.Assignment, completed)
			}
		}

		if bi < len(batches)-1 && s.cfg.DelayBetweenBatches > 0 {
			s.logger.Debug().Dur("delay", s.cfg.DelayBetweenBatches).Int("batch", bi+1).Msg("pausing between batches")
			if err := s.sleep(ctx, s.cfg.DelayBetweenBatches); err != nil {
				return err
			}
		}
	}

	return nil
}

// process runs one submission through extraction and grading. All failures are
// captured as placeholder results; nothing propagates past this boundary.
func (s *Scheduler) process(ctx context.Context, run *Run, sub submission.Submission) Result {
	sub = s.adapter.Extract(sub)
	if sub.ExtractionError != "" {
		run.Sink.appendAudit(sub.Identity, ActionFailed, fmt.Sprintf("extraction failed: %s", sub.ExtractionError))
		return s.failureResult(sub, ErrorKindExtractionFailed, sub.ExtractionError)
	}
	run.Sink.appendAudit(sub.Identity, ActionExtracted, fmt.Sprintf("%d characters extracted", len(sub.RawText)))

	// The request is built once; retries reuse it unchanged.
	input := ai.GradingInput{
		Identity:       sub.Identity,
		SubmissionText: sub.RawText,
		RubricImage:    s.cfg.RubricImage,
		Instructions:   s.cfg.Instructions,
		MaxScore:       s.cfg.MaxScore,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries+1; attempt++ {
		resp, err := s.grader.Grade(ctx, input)
		if err == nil {
			run.Sink.appendAudit(sub.Identity, ActionGraded,
				fmt.Sprintf("attempt %d: scored %.1f/%.1f with confidence %.2f", attempt, resp.TotalScore, s.cfg.MaxScore, resp.Confidence))
			return s.successResult(sub, resp)
		}

		lastErr = err
		if !ai.IsTransient(err) && !ai.IsSchemaViolation(err) {
			run.Sink.appendAudit(sub.Identity, ActionFailed, fmt.Sprintf("attempt %d: %v", attempt, err))
			s.logger.Error().Err(err).Str("identity", sub.Identity).Msg("terminal grading failure")
			return s.failureResult(sub, ErrorKindAuthError, err.Error())
		}

		if attempt <= s.cfg.MaxRetries {
			run.Sink.appendAudit(sub.Identity, ActionRetried, fmt.Sprintf("attempt %d failed: %v", attempt, err))
			s.logger.Warn().Err(err).Str("identity", sub.Identity).Int("attempt", attempt).Msg("grading attempt failed, retrying")
		} else {
			run.Sink.appendAudit(sub.Identity, ActionFailed, fmt.Sprintf("attempt %d failed, retry budget spent: %v", attempt, err))
			s.logger.Error().Err(err).Str("identity", sub.Identity).Msg("retry budget spent")
		}
	}

	kind := ErrorKindExhausted
	if ai.IsSchemaViolation(lastErr) {
		kind = ErrorKindSchemaViolation
	}
	return s.failureResult(sub, kind, lastErr.Error())
}

func (s *Scheduler) successResult(sub submission.Submission, resp ai.ModelResponse) Result {
	return Result{
		Identity:        sub.Identity,
		SourcePath:      sub.SourcePath,
		TotalScore:      resp.TotalScore,
		MaxScore:        s.cfg.MaxScore,
		Feedback:        resp.Feedback,
		Strengths:       resp.Strengths,
		Improvements:    resp.Improvements,
		RubricScores:    resp.RubricScores,
		Confidence:      resp.Confidence,
		IntegrityFlag:   resp.IntegrityConcern,
		IntegrityReason: resp.IntegrityReason,
		DryRun:          resp.Synthetic,
	}
}

func (s *Scheduler) failureResult(sub submission.Submission, kind ErrorKind, detail string) Result {
	return Result{
		Identity:    sub.Identity,
		SourcePath:  sub.SourcePath,
		MaxScore:    s.cfg.MaxScore,
		Confidence:  0,
		ErrorKind:   kind,
		ErrorDetail: detail,
	}
}

func partition(subs []submission.Submission, size int) [][]submission.Submission {
	var batches [][]submission.Submission
	for start := 0; start < len(subs); start += size {
		end := start + size
		if end > len(subs) {
			end = len(subs)
		}
		batches = append(batches, subs[start:end])
	}
	return batches
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
