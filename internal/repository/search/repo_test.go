package search

import (
	"context"
	"errors"
	"testing"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
)

// --- Mocks ---

type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// --- Tests ---

func TestSearchKNN_MapsEntriesToCandidates(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "jetkart:travel:idx" {
			t.Errorf("index name = %q", q.IndexName)
		}
		if q.K != 20 {
			t.Errorf("K = %d", q.K)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:   "jetkart:travel:FL-1001",
				Score: 0.92,
				Fields: map[string]string{
					"content":   "Emirates flight FL-1001",
					"airline":   "Emirates",
					"price_usd": "3200",
				},
			}},
		}, nil
	}}
	repo := New(ms)

	cands, err := repo.SearchKNN(context.Background(), "travel", []float32{0.1}, filter.NewSet(), 20, domain.PathFlight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d", len(cands))
	}
	c := cands[0]
	if c.ID() != "FL-1001" {
		t.Errorf("ID = %q, want key prefix stripped", c.ID())
	}
	if c.Score() != 0.92 {
		t.Errorf("Score = %v", c.Score())
	}
	if c.Path() != domain.PathFlight {
		t.Errorf("Path = %q", c.Path())
	}
	if c.Content() != "Emirates flight FL-1001" {
		t.Errorf("Content = %q", c.Content())
	}
	if c.Tags()["airline"] != "Emirates" {
		t.Errorf("airline tag = %q", c.Tags()["airline"])
	}
	if c.Numerics()["price_usd"] != 3200 {
		t.Errorf("price_usd numeric = %v", c.Numerics()["price_usd"])
	}
}

func TestSearchKNN_PropagatesFilters(t *testing.T) {
	filters := filter.NewSet()
	eq, _ := filter.NewEquals("Emirates")
	filters, _ = filters.Add("airline", eq)

	var gotFilters filter.Set
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		gotFilters = q.Filters
		return &db.SearchResult{}, nil
	}}
	repo := New(ms)

	_, err := repo.SearchKNN(context.Background(), "travel", []float32{0.1}, filters, 5, domain.PathFlight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilters.Len() != 1 {
		t.Errorf("filters not passed to store: %v", gotFilters.Fields())
	}
}

func TestSearchKNN_ExcludesVectorBlobFromReturnFields(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		for _, f := range q.ReturnFields {
			if f == "__vector" {
				t.Error("vector blob should not be returned")
			}
		}
		return &db.SearchResult{}, nil
	}}
	repo := New(ms)

	if _, err := repo.SearchKNN(context.Background(), "travel", []float32{0.1}, filter.NewSet(), 5, domain.PathFlight); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("index missing")
	}}
	repo := New(ms)

	_, err := repo.SearchKNN(context.Background(), "travel", []float32{0.1}, filter.NewSet(), 5, domain.PathFlight)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchBM25_MapsEntries(t *testing.T) {
	ms := &mockStore{searchBM25Fn: func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.Query != "refund policy" {
			t.Errorf("query = %q", q.Query)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:   "jetkart:travel:chunk-1",
				Score: 2.4,
				Fields: map[string]string{
					"content":       "Refunds are processed within 14 days.",
					"document_type": "refund_policy",
				},
			}},
		}, nil
	}}
	repo := New(ms)

	cands, err := repo.SearchBM25(context.Background(), "travel", "refund policy", filter.NewSet(), 10, domain.PathInfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d", len(cands))
	}
	if cands[0].ID() != "chunk-1" || cands[0].Path() != domain.PathInfo {
		t.Errorf("candidate = %q/%q", cands[0].ID(), cands[0].Path())
	}
	if cands[0].Tags()["document_type"] != "refund_policy" {
		t.Errorf("document_type tag = %q", cands[0].Tags()["document_type"])
	}
}

func TestSearchBM25_SkipsUnparsableNumerics(t *testing.T) {
	ms := &mockStore{searchBM25Fn: func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:    "jetkart:travel:FL-1",
				Fields: map[string]string{"price_usd": "not-a-number"},
			}},
		}, nil
	}}
	repo := New(ms)

	cands, err := repo.SearchBM25(context.Background(), "travel", "q", filter.NewSet(), 5, domain.PathInfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cands[0].Numerics()["price_usd"]; ok {
		t.Error("unparsable numeric should be skipped")
	}
}

func TestSearch_EmptyResult(t *testing.T) {
	repo := New(&mockStore{})
	cands, err := repo.SearchKNN(context.Background(), "travel", []float32{0.1}, filter.NewSet(), 5, domain.PathFlight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("candidates = %d, want none", len(cands))
	}
}
