package ingest

import (
	"context"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/vocab"
	"github.com/jetkart/jetkart/internal/repository/corpus"
)

// CorpusWriter stores embedded corpus entities.
type CorpusWriter interface {
	UpsertFlights(ctx context.Context, collection string, flights []corpus.EmbeddedFlight) error
	UpsertChunks(ctx context.Context, collection string, chunks []corpus.EmbeddedChunk) error
}

// CollectionStore reads collections and persists rebuilt vocabularies.
type CollectionStore interface {
	Get(ctx context.Context, name string) (domain.Collection, error)
	SaveVocabulary(ctx context.Context, name string, v vocab.Vocabulary) error
}

// Embedder vectorizes corpus content.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
