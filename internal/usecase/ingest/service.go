package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/travel"
	"github.com/jetkart/jetkart/internal/domain/vocab"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/repository/corpus"
)

// Service loads corpus entities into a collection: it validates and
// embeds flight records and policy documents, writes their hashes, and
// rebuilds the collection's filter vocabulary from the values observed
// so far.
type Service struct {
	writer CorpusWriter
	colls  CollectionStore
	embed  Embedder
}

// New creates an ingestion service.
func New(writer CorpusWriter, colls CollectionStore, embed Embedder) *Service {
	return &Service{writer: writer, colls: colls, embed: embed}
}

// IngestFlights validates, embeds and stores flight records, then
// rebuilds and persists the vocabulary. Returns the number of flights
// stored.
func (s *Service) IngestFlights(ctx context.Context, collection string, flights []travel.Flight) (int, error) {
	col, err := s.colls.Get(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %s: %w", collection, err)
	}

	for _, f := range flights {
		if err := f.Validate(); err != nil {
			return 0, fmt.Errorf("invalid flight: %w", err)
		}
	}

	embedded := make([]corpus.EmbeddedFlight, 0, len(flights))
	for _, f := range flights {
		emb, err := s.embed.Embed(ctx, f.Content())
		if err != nil {
			return 0, fmt.Errorf("embed flight %s: %w", f.FlightID, err)
		}
		if len(emb.Embedding) != col.VectorDim() {
			return 0, fmt.Errorf("embed flight %s: %w: got %d, index expects %d",
				f.FlightID, domain.ErrVectorDimMismatch, len(emb.Embedding), col.VectorDim())
		}
		embedded = append(embedded, corpus.EmbeddedFlight{Flight: f, Vector: emb.Embedding})
	}

	if err := s.writer.UpsertFlights(ctx, collection, embedded); err != nil {
		return 0, err
	}

	if err := s.rebuildVocabulary(ctx, collection, col.Vocabulary(), flights); err != nil {
		return len(flights), err
	}

	logger.FromContext(ctx).Info("ingested flights",
		zap.String("collection", collection), zap.Int("count", len(flights)))
	return len(flights), nil
}

// IngestDocument chunks a policy document, embeds and stores each
// chunk. Returns the number of chunks stored.
func (s *Service) IngestDocument(
	ctx context.Context, collection, documentType, content string, maxChunkSize int,
) (int, error) {
	col, err := s.colls.Get(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %s: %w", collection, err)
	}

	parts := chunkParagraphs(content, maxChunkSize)
	if len(parts) == 0 {
		return 0, fmt.Errorf("document has no content")
	}

	embedded := make([]corpus.EmbeddedChunk, 0, len(parts))
	for _, part := range parts {
		chunk := travel.PolicyChunk{
			ID:           uuid.NewString(),
			DocumentType: documentType,
			Content:      part,
		}
		if err := chunk.Validate(); err != nil {
			return 0, fmt.Errorf("invalid chunk: %w", err)
		}
		emb, err := s.embed.Embed(ctx, part)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		if len(emb.Embedding) != col.VectorDim() {
			return 0, fmt.Errorf("embed chunk %s: %w: got %d, index expects %d",
				chunk.ID, domain.ErrVectorDimMismatch, len(emb.Embedding), col.VectorDim())
		}
		embedded = append(embedded, corpus.EmbeddedChunk{Chunk: chunk, Vector: emb.Embedding})
	}

	if err := s.writer.UpsertChunks(ctx, collection, embedded); err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("ingested document",
		zap.String("collection", collection),
		zap.String("document_type", documentType),
		zap.Int("chunks", len(embedded)))
	return len(embedded), nil
}

// rebuildVocabulary folds the new batch's payload values into the
// observed value domains and persists the result. Existing values are
// kept so repeated batches only ever widen a domain.
func (s *Service) rebuildVocabulary(
	ctx context.Context, collection string, existing vocab.Vocabulary, flights []travel.Flight,
) error {
	observed := make(map[string][]string)
	for _, f := range existing.Fields() {
		if f.FieldType() == vocab.Keyword {
			observed[f.Name()] = append(observed[f.Name()], f.Values()...)
		}
	}

	var prices []int
	if p := existing.Price(); p.Max > 0 {
		prices = append(prices, p.Min, p.Max)
	}

	for _, f := range flights {
		for field, value := range f.Tags() {
			ft, ok := vocab.SchemaType(field)
			if ok && ft == vocab.Keyword {
				observed[field] = append(observed[field], value)
			}
		}
		prices = append(prices, f.PriceUSD)
	}
	observed["document_type"] = append(observed["document_type"],
		travel.DocTypeVisaRules, travel.DocTypeRefundPolicy)

	v, err := vocab.Build(observed, prices)
	if err != nil {
		return fmt.Errorf("build vocabulary: %w: %w", domain.ErrInvalidVocabulary, err)
	}

	if err := s.colls.SaveVocabulary(ctx, collection, v); err != nil {
		return fmt.Errorf("save vocabulary: %w", err)
	}
	return nil
}
