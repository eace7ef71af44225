package corpus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/travel"
)

// store is the consumer interface for corpus writes (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Repo writes immutable corpus entities into a collection's key space.
type Repo struct {
	store store
}

// New creates a corpus repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EmbeddedFlight pairs a flight record with its dense vector.
type EmbeddedFlight struct {
	Flight travel.Flight
	Vector []float32
}

// EmbeddedChunk pairs a policy chunk with its dense vector.
type EmbeddedChunk struct {
	Chunk  travel.PolicyChunk
	Vector []float32
}

// UpsertFlights stores flight hashes: payload fields, retrievable
// content and the embedding vector.
func (r *Repo) UpsertFlights(ctx context.Context, collection string, flights []EmbeddedFlight) error {
	items := make([]db.HashSetItem, 0, len(flights))
	for _, ef := range flights {
		fields := make(map[string]string, 16)
		for k, v := range ef.Flight.Tags() {
			fields[k] = v
		}
		for k, v := range ef.Flight.Numerics() {
			fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		fields["content"] = ef.Flight.Content()
		fields["__vector"] = vectorToBytes(ef.Vector)

		items = append(items, db.HashSetItem{
			Key:    docKey(collection, ef.Flight.FlightID),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert flights %s: %w", collection, err)
	}
	return nil
}

// UpsertChunks stores policy document chunk hashes.
func (r *Repo) UpsertChunks(ctx context.Context, collection string, chunks []EmbeddedChunk) error {
	items := make([]db.HashSetItem, 0, len(chunks))
	for _, ec := range chunks {
		fields := make(map[string]string, 4)
		for k, v := range ec.Chunk.Tags() {
			fields[k] = v
		}
		fields["content"] = ec.Chunk.Content
		fields["__vector"] = vectorToBytes(ec.Vector)

		items = append(items, db.HashSetItem{
			Key:    docKey(collection, ec.Chunk.ID),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert chunks %s: %w", collection, err)
	}
	return nil
}

func docKey(collection, id string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, collection, id)
}

// vectorToBytes serializes []float32 to a little-endian binary string,
// the layout FT.SEARCH expects for FLOAT32 vector fields.
func vectorToBytes(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}
