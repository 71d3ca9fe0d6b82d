package ai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// gradingSchema is the contract every model response must satisfy before it
// is accepted. Anything outside it is a schema violation, never coerced.
const gradingSchema = `{
	"type": "object",
	"properties": {
		"total_score": {"type": "number", "minimum": 0},
		"feedback": {"type": "string", "minLength": 1},
		"strengths": {"type": "string"},
		"improvements": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"integrity_concern": {"type": "boolean"},
		"integrity_reason": {"type": "string"},
		"rubric_scores": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"criterion": {"type": "string"},
					"max_points": {"type": "number"},
					"awarded_points": {"type": "number"},
					"justification": {"type": "string"}
				},
				"required": ["criterion", "max_points", "awarded_points"]
			}
		}
	},
	"required": ["total_score", "feedback", "confidence", "integrity_concern"]
}`

var compiledGradingSchema = jsonschema.MustCompileString("grading.json", gradingSchema)

// ParseModelResponse validates raw model output against the grading schema and
// decodes it. Violations are returned as *TerminalError with kind
// TerminalSchemaViolation.
func ParseModelResponse(content string, maxScore float64) (ModelResponse, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return ModelResponse{}, &TerminalError{
			Kind: TerminalSchemaViolation,
			Err:  fmt.Errorf("response is not valid json: %w", err),
		}
	}

	if err := compiledGradingSchema.Validate(decoded); err != nil {
		return ModelResponse{}, &TerminalError{
			Kind: TerminalSchemaViolation,
			Err:  fmt.Errorf("response violates grading schema: %w", err),
		}
	}

	var response ModelResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return ModelResponse{}, &TerminalError{
			Kind: TerminalSchemaViolation,
			Err:  fmt.Errorf("decode response: %w", err),
		}
	}

	if response.TotalScore > maxScore {
		return ModelResponse{}, &TerminalError{
			Kind: TerminalSchemaViolation,
			Err:  fmt.Errorf("total_score %.2f exceeds max score %.2f", response.TotalScore, maxScore),
		}
	}

	return response, nil
}
