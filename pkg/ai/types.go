package ai

import (
	"context"
	"encoding/json"
)

// GradingInput contains the artefacts needed to grade one submission.
type GradingInput struct {
	Identity       string
	SubmissionText string
	RubricImage    []byte
	Instructions   string
	MaxScore       float64
}

// ModelResponse is the structured grading output returned by a model.
type ModelResponse struct {
	TotalScore       float64         `json:"total_score"`
	Feedback         string          `json:"feedback"`
	Strengths        string          `json:"strengths"`
	Improvements     string          `json:"improvements"`
	Confidence       float64         `json:"confidence"`
	IntegrityConcern bool            `json:"integrity_concern"`
	IntegrityReason  string          `json:"integrity_reason"`
	RubricScores     json.RawMessage `json:"rubric_scores,omitempty"`
	Synthetic        bool            `json:"-"`
}

// Grader describes a model capable of grading submissions against a rubric
// image. Grade failures are classified as *TransientError or *TerminalError.
type Grader interface {
	Grade(ctx context.Context, input GradingInput) (ModelResponse, error)
	Ping(ctx context.Context) error
}
