package pipeline

import (
	"encoding/json"
	"time"
)

// ErrorKind identifies why a submission ended as a failure placeholder.
type ErrorKind string

const (
	// ErrorKindNone marks a successfully graded submission.
	ErrorKindNone ErrorKind = ""
	// ErrorKindExtractionFailed marks a submission whose text could not be extracted.
	ErrorKindExtractionFailed ErrorKind = "extraction_failed"
	// ErrorKindSchemaViolation marks a submission whose model responses never satisfied the grading schema.
	ErrorKindSchemaViolation ErrorKind = "schema_violation"
	// ErrorKindAuthError marks a submission rejected by the provider for bad credentials.
	ErrorKindAuthError ErrorKind = "auth_error"
	// ErrorKindExhausted marks a submission whose retry budget was spent on transient failures.
	ErrorKindExhausted ErrorKind = "exhausted"
)

// Result is the outcome of grading one submission. Exactly one Result exists
// per targeted submission once a run completes; failures become placeholder
// results rather than missing rows.
type Result struct {
	Identity        string
	SourcePath      string
	TotalScore      float64
	MaxScore        float64
	Percentage      float64
	LetterGrade     string
	Feedback        string
	Strengths       string
	Improvements    string
	RubricScores    json.RawMessage
	Confidence      float64
	IntegrityFlag   bool
	IntegrityReason string
	Flagged         bool
	FlagReason      string
	ErrorKind       ErrorKind
	ErrorDetail     string
	DryRun          bool
}

// AuditAction names one kind of pipeline action recorded in the audit trail.
type AuditAction string

const (
	// ActionExtracted records a successful text extraction.
	ActionExtracted AuditAction = "extracted"
	// ActionGraded records a successful model grading attempt.
	ActionGraded AuditAction = "graded"
	// ActionRetried records a failed attempt that will be retried.
	ActionRetried AuditAction = "retried"
	// ActionFailed records a submission settling as a failure.
	ActionFailed AuditAction = "failed"
	// ActionFlagged records a result routed to human review.
	ActionFlagged AuditAction = "flagged"
)

// AuditEntry is one immutable record of a pipeline action. Seq is assigned at
// append time, so entries are totally ordered by processing order.
type AuditEntry struct {
	Seq       int
	Timestamp time.Time
	Identity  string
	Action    AuditAction
	Detail    string
}
