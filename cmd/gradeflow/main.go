package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/classworks/gradeflow/internal/config"
	"github.com/classworks/gradeflow/internal/database"
	"github.com/classworks/gradeflow/internal/models"
	"github.com/classworks/gradeflow/internal/pipeline"
	"github.com/classworks/gradeflow/internal/progress"
	"github.com/classworks/gradeflow/internal/repository"
	"github.com/classworks/gradeflow/internal/service"
	"github.com/classworks/gradeflow/internal/submission"
	"github.com/classworks/gradeflow/pkg/ai"
)

var errNoCredentials = errors.New("no model credentials configured")

func main() {
	root := &cobra.Command{
		Use:           "gradeflow",
		Short:         "Batch grading pipeline for student submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		assignmentName string
		dryRun         bool
		startOffset    int
		batchSize      int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grade every submission of an assignment in batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := newLogger(cfg)

			assignment, err := config.LoadAssignment(cfg.AssignmentsRoot, assignmentName)
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(&models.GradeRecord{}, &models.AuditLog{}); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			var tracker service.ProgressStore
			if cfg.RedisURL != "" {
				redisClient, err := database.ConnectRedis(cfg.RedisURL)
				if err != nil {
					return err
				}
				defer redisClient.Close()
				tracker = progress.NewTracker(redisClient, logger)
			}

			grader, err := buildGrader(cfg, logger, dryRun)
			if err != nil {
				return err
			}

			if startOffset < 0 {
				startOffset = cfg.StartOffset
			}
			if batchSize <= 0 {
				batchSize = cfg.BatchSize
			}

			svc := service.NewGradingRunService(
				submission.NewLoader(logger),
				submission.NewAdapter(submission.FileTextExtract, logger),
				grader,
				repository.NewGradeRepository(db),
				repository.NewAuditLogRepository(db),
				tracker,
				validator.New(validator.WithRequiredStructEnabled()),
				logger,
			)

			summary, err := svc.Run(cmd.Context(), service.RunParams{
				Assignment:          assignment.Name,
				SubmissionsDir:      assignment.SubmissionsDir,
				RubricImage:         assignment.RubricImage,
				Instructions:        assignment.Instructions,
				BatchSize:           batchSize,
				StartOffset:         startOffset,
				DelayBetweenBatches: cfg.DelayBetweenBatches,
				MaxRetries:          cfg.MaxRetries,
				ConfidenceThreshold: cfg.ConfidenceThreshold,
				MaxScore:            cfg.MaxScore,
				GradeScale:          pipeline.GradeScale(cfg.GradeScale),
				DryRun:              dryRun,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Run %s: %d graded, %d failed, %d flagged for review\n",
				summary.RunID, summary.Succeeded, summary.Failed, summary.Flagged)
			return nil
		},
	}

	cmd.Flags().StringVarP(&assignmentName, "assignment", "a", "", "assignment to grade (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "produce synthetic results without calling the model")
	cmd.Flags().IntVar(&startOffset, "start-offset", -1, "resume from this submission index")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the configured batch size")
	_ = cmd.MarkFlagRequired("assignment")

	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify model provider connectivity and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			grader, err := buildGrader(cfg, newLogger(cfg), false)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := grader.Ping(ctx); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Println("Connection OK")
			return nil
		},
	}
}

func buildGrader(cfg config.Config, logger zerolog.Logger, dryRun bool) (ai.Grader, error) {
	if dryRun {
		return ai.NewDryRunGrader(), nil
	}

	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGrader(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.Model})
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, errNoCredentials
		}
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      logger,
		})
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.AppEnv == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
