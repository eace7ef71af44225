package ask

import (
	"context"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/label"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// Classifier labels a query. On failure it returns label.Both with a
// warning error.
type Classifier interface {
	Classify(ctx context.Context, query string) (label.Label, error)
}

// FilterSynthesizer converts a query into a validated predicate set
// over the collection's vocabulary.
type FilterSynthesizer interface {
	Synthesize(ctx context.Context, query string, v vocab.Vocabulary) (filter.Set, []filter.Dropped, error)
}

// Retriever executes the filtered hybrid search for one path.
type Retriever interface {
	Retrieve(
		ctx context.Context, collection, query string,
		filters filter.Set, k int, path domain.Path,
	) ([]domain.Candidate, error)
}

// Reranker reorders and truncates a candidate set.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []domain.Candidate, topN int) ([]domain.Candidate, error)
}

// Answerer produces the final response from the query and the merged
// evidence set.
type Answerer interface {
	Answer(ctx context.Context, query string, evidence []domain.Candidate) (string, error)
}

// CollectionReader loads collection metadata and its vocabulary.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domain.Collection, error)
}
