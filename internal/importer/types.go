// Package importer merges heterogeneous CSV records into the catalog's
// relational schema. Each row carries a record-type tag selecting an entity
// or link handler; handlers normalize fields, resolve natural keys against
// the store (creating missing entities on the fly), and write junction rows
// with duplicate suppression. Row failures are isolated: one bad row never
// aborts the batch.
package importer

import "fmt"

// Kind is the closed set of record kinds the importer understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindUser
	KindTitle
	KindGenre
	KindPerson
	KindStudio
	KindPlatform
	KindEpisode
	KindReview
	KindTitleGenre
	KindTitleCast
	KindTitleStudio
	KindTitlePlatform
	KindDistribution
	KindFollow
	KindDonation
	KindContainsEpisode
)

// Outcome classifies what a handler did with one record.
type Outcome int

const (
	// OutcomeInserted means the record produced (or re-affirmed) a row.
	OutcomeInserted Outcome = iota
	// OutcomeSkipped means the record was a soft no-op: missing required
	// field, pre-existing natural key, or a business-rule no-op.
	OutcomeSkipped
)

// Diagnostic records one failed row for end-of-run reporting.
type Diagnostic struct {
	Row     int    `json:"row"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result is the aggregate outcome of one import run.
type Result struct {
	Inserted    int          `json:"inserted"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Fatal is set when the source itself was unreadable and no records
	// were processed.
	Fatal bool `json:"fatal,omitempty"`
}

// Ok reports whether the run completed with no failures.
func (r Result) Ok() bool {
	return !r.Fatal && r.Failed == 0
}

// Summary returns the one-line human-readable tally.
func (r Result) Summary() string {
	return fmt.Sprintf("inserted=%d skipped=%d failed=%d", r.Inserted, r.Skipped, r.Failed)
}
