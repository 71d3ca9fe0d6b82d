package ai

import (
	"context"
	"encoding/json"
)

// DryRunGrader produces deterministic synthetic results without contacting any
// model provider, so the full pipeline shape can be exercised at zero cost.
type DryRunGrader struct{}

// NewDryRunGrader constructs the synthetic grader.
func NewDryRunGrader() *DryRunGrader {
	return &DryRunGrader{}
}

// Grade returns the same mock result for every submission, scaled to the
// requested maximum score and marked as synthetic.
func (d *DryRunGrader) Grade(_ context.Context, input GradingInput) (ModelResponse, error) {
	rubric, _ := json.Marshal([]map[string]interface{}{
		{"criterion": "Content Quality", "max_points": 40, "awarded_points": 35, "justification": "[DRY RUN] mock score"},
		{"criterion": "Organization", "max_points": 30, "awarded_points": 25, "justification": "[DRY RUN] mock score"},
		{"criterion": "Writing Quality", "max_points": 30, "awarded_points": 28, "justification": "[DRY RUN] mock score"},
	})

	return ModelResponse{
		TotalScore:       input.MaxScore * 0.88,
		Feedback:         "[DRY RUN] This is a mock feedback response for testing the pipeline. No actual grading was performed.",
		Strengths:        "[DRY RUN] Mock strength 1. Mock strength 2.",
		Improvements:     "[DRY RUN] Mock improvement 1. Mock improvement 2.",
		Confidence:       0.95,
		IntegrityConcern: false,
		RubricScores:     rubric,
		Synthetic:        true,
	}, nil
}

// Ping always succeeds; there is nothing to connect to.
func (d *DryRunGrader) Ping(context.Context) error {
	return nil
}
