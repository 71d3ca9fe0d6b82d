package ai

import (
	"encoding/base64"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// systemPrompt steers the model towards consistent rubric-based grading.
// Adjusting it changes grades across the board, so treat edits as breaking.
const systemPrompt = `You are an expert teaching assistant grading student assignments. Your role is to:

1. Analyze the rubric image carefully to understand all grading criteria and point allocations.
2. Evaluate the student submission against each rubric criterion.
3. Assign fair and consistent scores with clear justifications.
4. Provide constructive feedback that helps students learn and improve.

Grading principles:
- Be FAIR and CONSISTENT - grade based solely on the rubric criteria.
- Be SPECIFIC - reference actual content from the submission.
- Be CONSTRUCTIVE - feedback should help students understand how to improve.
- Be ACCURATE - double-check your point calculations.

Academic integrity. Flag submissions if you notice:
- Text that appears copied from common sources without citation.
- Inconsistent writing quality suggesting parts were not written by the student.
- Suspiciously similar phrasing to known sources.
Do NOT flag for poor grammar, appropriate use of course materials, or standard terminology.

Confidence guidelines:
- 0.9-1.0: clear submission, criteria clearly met or not met.
- 0.7-0.9: some ambiguity but confident in the assessment.
- 0.5-0.7: significant ambiguity, recommend human review.
- below 0.5: unable to grade reliably.`

const outputReminder = `## Required Output

Respond with a single JSON object containing:
- total_score (number, 0 to the stated maximum)
- feedback (2-4 sentences of personalised feedback)
- strengths (short paragraph naming 2-3 specific strengths)
- improvements (short paragraph naming 2-3 areas to improve)
- confidence (number between 0.0 and 1.0)
- integrity_concern (boolean)
- integrity_reason (string, only when integrity_concern is true)
- rubric_scores (optional array of {criterion, max_points, awarded_points, justification})`

func taskText(input GradingInput) string {
	return fmt.Sprintf("## Grading Task\n\nGrade the following student submission using the rubric image provided.\n\nStudent: %s\nMaximum score: %.0f", input.Identity, input.MaxScore)
}

func submissionText(input GradingInput) string {
	return fmt.Sprintf("## Student Submission\n\n%s", input.SubmissionText)
}

func instructionsText(input GradingInput) string {
	return fmt.Sprintf("## Additional Grading Instructions\n\n%s", input.Instructions)
}

// rubricDataURL encodes the rubric image for inline transport. The media type
// is sniffed from the bytes rather than trusted from a file extension.
func rubricDataURL(image []byte) string {
	media := mimetype.Detect(image).String()
	return fmt.Sprintf("data:%s;base64,%s", media, base64.StdEncoding.EncodeToString(image))
}
