package ask

import (
	"time"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/label"
)

// FilterState tells callers whether hard filtering ran. An empty
// predicate set from a successful synthesis is a different state than a
// failed synthesis; operator tooling distinguishes the two.
type FilterState string

// Filter state constants.
const (
	// FilterStateApplied means a non-empty predicate set constrained
	// retrieval.
	FilterStateApplied FilterState = "applied"
	// FilterStateNone means synthesis ran (or was not needed) and found
	// nothing to constrain.
	FilterStateNone FilterState = "none"
	// FilterStateFailed means synthesis failed and retrieval ran
	// unfiltered as a degraded fallback.
	FilterStateFailed FilterState = "failed"
)

// Result is the outcome of one query through the pipeline.
type Result struct {
	Answer      string
	Evidence    []domain.Candidate
	Label       label.Label
	Filters     filter.Set
	FilterState FilterState
	Dropped     []filter.Dropped
	Warnings    []string
	Timings     map[string]time.Duration
}
