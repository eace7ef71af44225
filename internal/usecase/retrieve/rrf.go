package retrieve

import (
	"sort"

	"github.com/jetkart/jetkart/internal/domain"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges the dense and sparse rankings via Reciprocal Rank
// Fusion: score(d) = sum of 1/(k + rank_i(d)) over the rankings where d
// appears. Ties break on candidate ID so fusion is deterministic for
// fixed inputs.
func fuseRRF(knn, bm25 []domain.Candidate, topK int) []domain.Candidate {
	type scored struct {
		cand  domain.Candidate
		score float64
	}

	merged := make(map[string]*scored, len(knn)+len(bm25))

	for rank, c := range knn {
		merged[c.ID()] = &scored{cand: c, score: 1.0 / float64(rrfK+rank+1)}
	}

	for rank, c := range bm25 {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[c.ID()]; ok {
			existing.score += s
			// Dense hit kept when both rankings contain the candidate.
		} else {
			merged[c.ID()] = &scored{cand: c, score: s}
		}
	}

	out := make([]domain.Candidate, 0, len(merged))
	for _, s := range merged {
		out = append(out, s.cand.WithScore(s.score))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].ID() < out[j].ID()
	})

	if len(out) > topK {
		out = out[:topK]
	}

	return out
}
