package collection

import (
	"context"
	"testing"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

const testVectorDim = 768

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn          func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	delFn           func(ctx context.Context, key string) error
	delPatternFn    func(ctx context.Context, pattern string) (int, error)
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	alterAddFieldFn func(ctx context.Context, indexName string, f db.IndexField) error
	dropIndexFn     func(ctx context.Context, name string) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) DelPattern(ctx context.Context, pattern string) (int, error) {
	if m.delPatternFn != nil {
		return m.delPatternFn(ctx, pattern)
	}
	return 0, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) AlterAddField(ctx context.Context, indexName string, f db.IndexField) error {
	if m.alterAddFieldFn != nil {
		return m.alterAddFieldFn(ctx, indexName, f)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testCollection(t *testing.T) domain.Collection {
	t.Helper()
	airline, err := vocab.NewField("airline", vocab.Keyword, []string{"Emirates", "Lufthansa"})
	if err != nil {
		t.Fatalf("vocab field: %v", err)
	}
	v, err := vocab.New([]vocab.Field{airline}, vocab.PriceStats{
		Min: 300, Max: 4000, Buckets: vocab.DefaultBuckets(),
	})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	return domain.ReconstructCollection("travel", testVectorDim, v, 1700000000)
}
