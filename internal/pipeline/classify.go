package pipeline

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// GradeScale maps letter grades to the minimum percentage that earns them.
type GradeScale map[string]float64

// letterOrder fixes the evaluation order so classification is deterministic
// regardless of map iteration.
var letterOrder = []string{"A", "B", "C", "D", "F"}

// DefaultGradeScale returns the standard A-F scale.
func DefaultGradeScale() GradeScale {
	return GradeScale{"A": 90, "B": 80, "C": 70, "D": 60, "F": 0}
}

// Letter resolves a percentage to a letter grade.
func (s GradeScale) Letter(percentage float64) string {
	for _, letter := range letterOrder {
		min, ok := s[letter]
		if !ok {
			continue
		}
		if percentage >= min {
			return letter
		}
	}
	return "F"
}

// Classifier decides which results need human review and derives the
// percentage and letter grade. It is a pure post-processing step: given the
// same result, threshold, and scale it always produces the same output, and it
// never alters scores.
type Classifier struct {
	threshold float64
	scale     GradeScale
	sanitizer *bluemonday.Policy
}

// NewClassifier constructs a classifier with the given confidence threshold.
func NewClassifier(threshold float64, scale GradeScale) *Classifier {
	if scale == nil {
		scale = DefaultGradeScale()
	}
	return &Classifier{
		threshold: threshold,
		scale:     scale,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Classify fills in the derived fields of r and decides review membership.
// A result is flagged iff its confidence is below the threshold, the model
// raised an integrity concern, or the result is a failure placeholder.
func (c *Classifier) Classify(r Result) Result {
	r.Feedback = c.sanitizer.Sanitize(r.Feedback)
	r.Strengths = c.sanitizer.Sanitize(r.Strengths)
	r.Improvements = c.sanitizer.Sanitize(r.Improvements)
	r.IntegrityReason = c.sanitizer.Sanitize(r.IntegrityReason)

	if r.ErrorKind != ErrorKindNone {
		r.Flagged = true
		switch r.ErrorKind {
		case ErrorKindExtractionFailed:
			r.FlagReason = fmt.Sprintf("extraction failed: %s", r.ErrorDetail)
		default:
			r.FlagReason = fmt.Sprintf("grading error: %s", r.ErrorDetail)
		}
		return r
	}

	if r.MaxScore > 0 {
		r.Percentage = r.TotalScore / r.MaxScore * 100
	}
	r.LetterGrade = c.scale.Letter(r.Percentage)

	switch {
	case r.Confidence < c.threshold:
		r.Flagged = true
		r.FlagReason = fmt.Sprintf("low confidence score: %.2f", r.Confidence)
	case r.IntegrityFlag:
		r.Flagged = true
		r.FlagReason = fmt.Sprintf("academic integrity concern: %s", r.IntegrityReason)
	}

	return r
}
