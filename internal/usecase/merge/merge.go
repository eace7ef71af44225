package merge

import (
	"github.com/jetkart/jetkart/internal/domain"
)

// Merge combines the flight-path and info-path candidate lists into one
// evidence list. Identity wins over score: duplicates are removed by
// candidate ID (first occurrence kept), and when both paths contributed
// the lists are interleaved alternately so neither path's score
// magnitude can starve the other. A pure function of its inputs.
func Merge(flight, info []domain.Candidate) []domain.Candidate {
	flight = dedupe(flight, nil)
	seen := make(map[string]bool, len(flight))
	for _, c := range flight {
		seen[c.ID()] = true
	}
	info = dedupe(info, seen)

	if len(flight) == 0 {
		return info
	}
	if len(info) == 0 {
		return flight
	}

	out := make([]domain.Candidate, 0, len(flight)+len(info))
	for i := 0; i < len(flight) || i < len(info); i++ {
		if i < len(flight) {
			out = append(out, flight[i])
		}
		if i < len(info) {
			out = append(out, info[i])
		}
	}
	return out
}

// dedupe removes candidates whose ID was already seen, preserving
// order. seen may be nil.
func dedupe(cands []domain.Candidate, seen map[string]bool) []domain.Candidate {
	if seen == nil {
		seen = make(map[string]bool, len(cands))
	}
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true
		out = append(out, c)
	}
	return out
}
