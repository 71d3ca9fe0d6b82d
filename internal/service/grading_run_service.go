package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/classworks/gradeflow/internal/models"
	"github.com/classworks/gradeflow/internal/observability"
	"github.com/classworks/gradeflow/internal/pipeline"
	"github.com/classworks/gradeflow/internal/repository"
	"github.com/classworks/gradeflow/internal/submission"
	"github.com/classworks/gradeflow/pkg/ai"
)

// RunParams carries everything one batch grading run needs.
type RunParams struct {
	Assignment          string `validate:"required"`
	SubmissionsDir      string `validate:"required"`
	RubricImage         []byte `validate:"required"`
	Instructions        string
	BatchSize           int           `validate:"gt=0"`
	StartOffset         int           `validate:"gte=0"`
	DelayBetweenBatches time.Duration `validate:"gte=0"`
	MaxRetries          int           `validate:"gte=0"`
	ConfidenceThreshold float64       `validate:"gte=0,lte=1"`
	MaxScore            float64       `validate:"gt=0"`
	GradeScale          pipeline.GradeScale
	DryRun              bool
}

// RunSummary reports the outcome of a completed run.
type RunSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Flagged   int
	DryRun    bool
}

// ProgressStore checkpoints and recalls per-assignment completion counts.
type ProgressStore interface {
	pipeline.ProgressReporter
	Suggest(ctx context.Context, assignment string) (int, bool)
	Clear(ctx context.Context, assignment string)
}

// GradingRunService drives a full batch grading run: load submissions,
// schedule grading, persist results and the audit trail.
type GradingRunService interface {
	Run(ctx context.Context, params RunParams) (RunSummary, error)
}

type gradingRunService struct {
	loader    *submission.Loader
	adapter   *submission.Adapter
	grader    ai.Grader
	grades    repository.GradeRepository
	audits    repository.AuditLogRepository
	progress  ProgressStore
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingRunService constructs the run service. progress may be nil.
func NewGradingRunService(loader *submission.Loader, adapter *submission.Adapter, grader ai.Grader, grades repository.GradeRepository, audits repository.AuditLogRepository, progress ProgressStore, validate *validator.Validate, logger zerolog.Logger) GradingRunService {
	return &gradingRunService{
		loader:    loader,
		adapter:   adapter,
		grader:    grader,
		grades:    grades,
		audits:    audits,
		progress:  progress,
		validator: validate,
		logger:    logger.With().Str("component", "grading_run_service").Logger(),
	}
}

func (s *gradingRunService) Run(ctx context.Context, params RunParams) (RunSummary, error) {
	tracer := otel.Tracer("github.com/classworks/gradeflow/internal/service/grading_run")
	ctx, span := tracer.Start(ctx, "grading.run")
	span.SetAttributes(
		attribute.String("grading.assignment", params.Assignment),
		attribute.Bool("grading.dry_run", params.DryRun),
	)
	defer span.End()

	if err := s.validator.Struct(params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return RunSummary{}, err
	}

	start := time.Now()

	// Only loader failures abort the run before any batch starts.
	subs, err := s.loader.List(params.SubmissionsDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_failed")
		return RunSummary{}, err
	}

	if s.progress != nil && params.StartOffset == 0 {
		if completed, ok := s.progress.Suggest(ctx, params.Assignment); ok && completed > 0 && completed < len(subs) {
			s.logger.Info().
				Int("completed", completed).
				Msg("previous checkpoint found; pass it as start offset to resume")
		}
	}

	grader := s.grader
	if params.DryRun {
		grader = ai.NewDryRunGrader()
	}

	run := pipeline.NewRun(params.Assignment, params.BatchSize, params.StartOffset)
	classifier := pipeline.NewClassifier(params.ConfidenceThreshold, params.GradeScale)
	scheduler := pipeline.NewScheduler(grader, s.adapter, classifier, pipeline.Config{
		Assignment:          params.Assignment,
		BatchSize:           params.BatchSize,
		StartOffset:         params.StartOffset,
		MaxRetries:          params.MaxRetries,
		DelayBetweenBatches: params.DelayBetweenBatches,
		MaxScore:            params.MaxScore,
		Instructions:        params.Instructions,
		RubricImage:         params.RubricImage,
	}, s.reporter(), s.logger)

	runErr := scheduler.Run(ctx, run, subs)

	// Completed results are persisted even when the run was cancelled, so a
	// later invocation can resume from the recorded offset.
	if err := s.persist(context.WithoutCancel(ctx), run, params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return RunSummary{}, err
	}

	summary := summarize(run, params)
	s.observe(params.Assignment, run, start)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run_interrupted")
		s.logger.Warn().Err(runErr).Str("run_id", run.ID).Int("completed", len(run.Sink.Results())).Msg("run interrupted")
		return summary, runErr
	}

	if s.progress != nil {
		s.progress.Clear(ctx, params.Assignment)
	}

	span.SetAttributes(
		attribute.Int("grading.total", summary.Total),
		attribute.Int("grading.flagged", summary.Flagged),
	)

	s.logger.Info().
		Str("run_id", run.ID).
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("flagged", summary.Flagged).
		Bool("dry_run", summary.DryRun).
		Dur("elapsed", time.Since(start)).
		Msg("batch run complete")

	return summary, nil
}

func (s *gradingRunService) reporter() pipeline.ProgressReporter {
	if s.progress == nil {
		return nil
	}
	return s.progress
}

func (s *gradingRunService) persist(ctx context.Context, run *pipeline.Run, params RunParams) error {
	results := run.Sink.Results()
	records := make([]*models.GradeRecord, 0, len(results))
	for _, r := range results {
		records = append(records, &models.GradeRecord{
			RunID:           run.ID,
			Assignment:      params.Assignment,
			Identity:        r.Identity,
			SourcePath:      r.SourcePath,
			TotalScore:      r.TotalScore,
			MaxScore:        r.MaxScore,
			Percentage:      r.Percentage,
			LetterGrade:     r.LetterGrade,
			Feedback:        r.Feedback,
			Strengths:       r.Strengths,
			Improvements:    r.Improvements,
			RubricScores:    datatypes.JSON(r.RubricScores),
			Confidence:      r.Confidence,
			IntegrityFlag:   r.IntegrityFlag,
			IntegrityReason: r.IntegrityReason,
			Flagged:         r.Flagged,
			FlagReason:      r.FlagReason,
			ErrorKind:       string(r.ErrorKind),
			ErrorDetail:     r.ErrorDetail,
			DryRun:          r.DryRun,
		})
	}

	if err := s.grades.CreateBatch(ctx, records); err != nil {
		return fmt.Errorf("persist grades: %w", err)
	}

	auditRows := make([]*models.AuditLog, 0, len(run.Sink.Audit()))
	for _, e := range run.Sink.Audit() {
		auditRows = append(auditRows, &models.AuditLog{
			RunID:     run.ID,
			Seq:       e.Seq,
			Identity:  e.Identity,
			Action:    string(e.Action),
			Detail:    e.Detail,
			CreatedAt: e.Timestamp,
		})
	}

	if err := s.audits.CreateBatch(ctx, auditRows); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}

	return nil
}

func summarize(run *pipeline.Run, params RunParams) RunSummary {
	summary := RunSummary{
		RunID:   run.ID,
		DryRun:  params.DryRun,
		Flagged: len(run.Sink.Flagged()),
	}
	for _, r := range run.Sink.Results() {
		summary.Total++
		if r.ErrorKind == pipeline.ErrorKindNone {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func (s *gradingRunService) observe(assignment string, run *pipeline.Run, start time.Time) {
	for _, r := range run.Sink.Results() {
		status := "succeeded"
		if r.ErrorKind != pipeline.ErrorKindNone {
			status = "failed"
		}
		observability.SubmissionsProcessed().WithLabelValues(assignment, status).Inc()
	}
	if flagged := len(run.Sink.Flagged()); flagged > 0 {
		observability.SubmissionsFlagged().WithLabelValues(assignment).Add(float64(flagged))
	}
	observability.RunDuration().WithLabelValues(assignment).Observe(time.Since(start).Seconds())
}
