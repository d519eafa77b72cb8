package domain

import (
	"fmt"
	"time"
)

// Change is one concrete edit made to a document's content.
type Change struct {
	From string
	To   string
	Note string
}

// Failure records a document that could not be fixed or written.
type Failure struct {
	DocumentID int64
	Reason     string
}

// Unresolved records an item that needs manual follow-up.
type Unresolved struct {
	DocumentID int64
	Item       string
	Reason     string
}

// FixOutcome is the per-document result of a run.
type FixOutcome struct {
	DocumentID int64
	Changed    bool
	Err        error
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID          string
	Fixer          string
	DryRun         bool
	Scanned        int
	Candidates     int
	Updated        int
	Skipped        int
	AssetsCreated  int
	AssetsRepaired int
	Failures       []Failure
	Unresolved     []Unresolved
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Record folds a document outcome into the summary.
func (s *Summary) Record(outcome FixOutcome) {
	s.Scanned++
	switch {
	case outcome.Err != nil:
		s.Failures = append(s.Failures, Failure{DocumentID: outcome.DocumentID, Reason: outcome.Err.Error()})
	case !outcome.Changed:
		s.Skipped++
	case s.DryRun:
		s.Candidates++
	default:
		s.Candidates++
		s.Updated++
	}
}

// Line renders the one-line human readable summary.
func (s Summary) Line() string {
	mode := "enact"
	if s.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("%s (%s): scanned %d, candidates %d, updated %d, skipped %d, failed %d, unresolved %d",
		s.Fixer, mode, s.Scanned, s.Candidates, s.Updated, s.Skipped, len(s.Failures), len(s.Unresolved))
}
