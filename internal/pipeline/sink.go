package pipeline

import "time"

// Sink accumulates results, the flagged subset, and the audit trail for one
// run. It lives in memory for the run's lifetime and exposes read-only
// snapshots for external persistence.
type Sink struct {
	results []Result
	flagged []Result
	audit   []AuditEntry
	nextSeq int
	now     func() time.Time
}

// NewSink constructs an empty sink.
func NewSink() *Sink {
	return &Sink{now: time.Now}
}

func (s *Sink) addResult(r Result) {
	s.results = append(s.results, r)
}

func (s *Sink) addFlagged(r Result) {
	s.flagged = append(s.flagged, r)
}

func (s *Sink) appendAudit(identity string, action AuditAction, detail string) {
	s.audit = append(s.audit, AuditEntry{
		Seq:       s.nextSeq,
		Timestamp: s.now(),
		Identity:  identity,
		Action:    action,
		Detail:    detail,
	})
	s.nextSeq++
}

// Results returns a copy of all accumulated results in processing order.
func (s *Sink) Results() []Result {
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Flagged returns a copy of the results routed to human review.
func (s *Sink) Flagged() []Result {
	out := make([]Result, len(s.flagged))
	copy(out, s.flagged)
	return out
}

// Audit returns a copy of the audit trail ordered by sequence number.
func (s *Sink) Audit() []AuditEntry {
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
