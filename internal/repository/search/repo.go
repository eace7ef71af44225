package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo executes the two sub-searches of the hybrid retriever and maps
// raw hits into domain candidates.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// returnFields lists what each hit carries back: content, the fused
// score input and every fixed-schema payload field. The vector blob is
// deliberately excluded.
func returnFields(extra ...string) []string {
	fields := append([]string{"content"}, extra...)
	return append(fields, vocab.SchemaFieldNames()...)
}

// SearchKNN performs a filtered dense search on a collection.
func (r *Repo) SearchKNN(
	ctx context.Context, collection string,
	vector []float32, filters filter.Set, topK int, path domain.Path,
) ([]domain.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(collection),
		Vector:       vector,
		Filters:      filters,
		K:            topK,
		ReturnFields: returnFields("__vector_score"),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}

	return parseResults(sr, collection, path), nil
}

// SearchBM25 performs a filtered sparse lexical search on a collection.
func (r *Repo) SearchBM25(
	ctx context.Context, collection string,
	query string, filters filter.Set, topK int, path domain.Path,
) ([]domain.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    indexName(collection),
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields(),
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", collection, err)
	}

	return parseResults(sr, collection, path), nil
}

// parseResults converts raw hits into candidates, splitting payload
// fields into tags and numerics by schema type.
func parseResults(sr *db.SearchResult, collection string, path domain.Path) []domain.Candidate {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
	out := make([]domain.Candidate, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)

		var content string
		tags := make(map[string]string)
		numerics := make(map[string]float64)

		for k, v := range entry.Fields {
			if k == "content" {
				content = v
				continue
			}
			ft, known := vocab.SchemaType(k)
			if known && ft == vocab.Integer {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					numerics[k] = n
				}
				continue
			}
			tags[k] = v
		}

		out = append(out, domain.NewCandidate(id, entry.Score, path, content, tags, numerics))
	}

	return out
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}
