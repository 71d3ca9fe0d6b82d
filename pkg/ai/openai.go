package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gradeflow",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of model grading calls",
	}, []string{"model"})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradeflow",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of failed model grading calls",
	}, []string{"model", "kind"})
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API using
// a vision-capable model: the rubric image travels inline with the prompt.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/classworks/gradeflow/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Grade sends one grading request to OpenAI and parses the structured response.
func (g *OpenAIGrader) Grade(parent context.Context, input GradingInput) (ModelResponse, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("grading.identity", input.Identity),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: buildUserParts(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	gradingDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := classifyProviderError(err)
		gradingFailures.WithLabelValues(g.cfg.Model, failureKind(classified)).Inc()
		span.RecordError(classified)
		span.SetStatus(codes.Error, classified.Error())
		g.logger.Warn().Err(err).Str("identity", input.Identity).Msg("grading call failed")
		return ModelResponse{}, classified
	}

	if len(resp.Choices) == 0 {
		err := &TerminalError{Kind: TerminalSchemaViolation, Err: fmt.Errorf("no choices returned from openai")}
		gradingFailures.WithLabelValues(g.cfg.Model, failureKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ModelResponse{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := ParseModelResponse(content, input.MaxScore)
	if err != nil {
		gradingFailures.WithLabelValues(g.cfg.Model, failureKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ModelResponse{}, err
	}

	return result, nil
}

// Ping performs a minimal round-trip to verify credentials and connectivity.
func (g *OpenAIGrader) Ping(ctx context.Context) error {
	_, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.cfg.Model,
		MaxTokens: 10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Reply with OK."},
		},
	})
	if err != nil {
		return classifyProviderError(err)
	}
	return nil
}

func buildUserParts(input GradingInput) []openai.ChatMessagePart {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: taskText(input)},
		{Type: openai.ChatMessagePartTypeText, Text: "## Rubric\nAnalyze this rubric image to understand all grading criteria:"},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    rubricDataURL(input.RubricImage),
				Detail: openai.ImageURLDetailHigh,
			},
		},
		{Type: openai.ChatMessagePartTypeText, Text: submissionText(input)},
	}

	if input.Instructions != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: instructionsText(input)})
	}

	return append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: outputReminder})
}

// classifyProviderError sorts provider failures into transient and terminal
// buckets. Unknown failures count as transient: the retry budget bounds them.
func classifyProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &TerminalError{Kind: TerminalAuth, Err: err}
		case http.StatusTooManyRequests:
			return &TransientError{Reason: TransientRateLimited, Err: err}
		}
		return &TransientError{Reason: TransientTimeout, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Reason: TransientTimeout, Err: err}
	}

	return &TransientError{Reason: TransientTimeout, Err: err}
}

func failureKind(err error) string {
	var transient *TransientError
	if errors.As(err, &transient) {
		return string(transient.Reason)
	}
	var terminal *TerminalError
	if errors.As(err, &terminal) {
		return string(terminal.Kind)
	}
	return "unknown"
}
