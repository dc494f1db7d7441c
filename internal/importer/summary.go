package importer

import "github.com/tracyhatemice/mailimport/internal/mailbox"

// Outcome is what happened to one message during a cycle.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes the handling of one message.
type Result struct {
	Ref      mailbox.Ref
	Outcome  Outcome
	Sender   string // matched whitelist address, empty when skipped
	RecordID string
	Err      error
}

// Summary aggregates one import cycle.
type Summary struct {
	Total    int
	Accepted int
	Skipped  int
	Failed   int
	Results  []Result

	// Err is set when the cycle failed as a whole (connection, listing,
	// panic). Per-message errors live in Results.
	Err error
	// Disabled is set when the importer is in dirty state and did not run.
	Disabled bool
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
