package retrieve

import (
	"context"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
)

// Repository defines the storage contract for the two sub-searches.
type Repository interface {
	SearchKNN(
		ctx context.Context, collection string,
		vector []float32, filters filter.Set, topK int, path domain.Path,
	) ([]domain.Candidate, error)

	SearchBM25(
		ctx context.Context, collection string,
		query string, filters filter.Set, topK int, path domain.Path,
	) ([]domain.Candidate, error)
}

// Embedder vectorizes query text for the dense sub-search.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
