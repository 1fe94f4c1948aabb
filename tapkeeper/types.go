package tapkeeper

import (
	"errors"

	"github.com/hazyhaar/taptarget/tapkeeper/internal/store"
)

// Type aliases so callers need not import internal/store.
type (
	Run        = store.Run
	RunSummary = store.RunSummary
	Offender   = store.Offender
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("tapkeeper: not found")

// Stats summarises the stored runs.
type Stats struct {
	Runs       int         `json:"runs"`
	Pages      int         `json:"pages"`
	Passed     int         `json:"passed"`
	Skipped    int         `json:"skipped"`
	FailedRows int         `json:"failed_rows"`
	MeanScore  float64     `json:"mean_score"`
	Offenders  []*Offender `json:"top_offenders"`
}
