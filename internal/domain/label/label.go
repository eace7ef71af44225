package label

import (
	"fmt"
	"strings"
)

// Label is the query classification outcome.
type Label string

// Classification constants.
const (
	// Flight means the query asks for concrete flight lookups.
	Flight Label = "flight"
	// Info means the query asks an informational question answered from
	// policy documents.
	Info Label = "info"
	// Both means the query mixes the two and both retrieval paths run.
	Both Label = "both"
)

// IsValid checks if the label is one of the supported values.
func (l Label) IsValid() bool {
	return l == Flight || l == Info || l == Both
}

// IncludesFlight reports whether the flight path should run.
func (l Label) IncludesFlight() bool { return l == Flight || l == Both }

// IncludesInfo reports whether the info path should run.
func (l Label) IncludesInfo() bool { return l == Info || l == Both }

// Parse normalizes and validates a classifier output string.
func Parse(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("invalid classification label %q", s)
	}
	return l, nil
}
