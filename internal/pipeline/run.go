package pipeline

import "github.com/google/uuid"

// Run owns the accumulators for one batch grading invocation. It is passed
// explicitly into each processing step; only the Scheduler mutates it.
type Run struct {
	ID          string
	Assignment  string
	BatchSize   int
	StartOffset int
	Sink        *Sink
}

// NewRun creates an empty run with a fresh identifier.
func NewRun(assignment string, batchSize, startOffset int) *Run {
	return &Run{
		ID:          uuid.NewString(),
		Assignment:  assignment,
		BatchSize:   batchSize,
		StartOffset: startOffset,
		Sink:        NewSink(),
	}
}
