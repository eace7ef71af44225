package db

import (
	"context"
	"time"

	"github.com/jetkart/jetkart/internal/domain/filter"
)

// Store is the retrieval-backend facade. Consumers depend on the narrow
// sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	DelPattern(ctx context.Context, pattern string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations. AlterAddField
// extends an existing index one payload field at a time, so individual
// field failures stay independent of each other.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	AlterAddField(ctx context.Context, indexName string, f IndexField) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// KNNQuery describes a filtered dense (vector similarity) search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	Filters      filter.Set
	K            int
	ReturnFields []string
}

// TextQuery describes a filtered sparse (BM25 lexical) search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filters      filter.Set
	TopK         int
	ReturnFields []string
}

// SearchEntry is one raw hit: storage key, score and flat hash fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is the raw outcome of an FT.SEARCH call.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// Searcher provides the two sub-searches of the hybrid retriever.
// Filters compile into a hard pre-filter applied before scoring.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
}
