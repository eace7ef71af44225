package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// --- Recreate ---

func TestRecreate_FreshCollection(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		if name != "jetkart:travel:idx" {
			t.Errorf("unexpected index name: %s", name)
		}
		return false, nil
	}
	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != "jetkart:collections:travel" {
			t.Errorf("unexpected metadata key: %s", key)
		}
		if fields["name"] != "travel" || fields["vector_dim"] != "768" {
			t.Errorf("unexpected metadata fields: %v", fields)
		}
		return nil
	}

	report, err := repo.Recreate(ctx, col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Recreated {
		t.Error("Recreated should be false for a fresh collection")
	}
	if created == nil {
		t.Fatal("FT.CREATE not invoked")
	}
	if len(created.Fields) != 2 {
		t.Fatalf("base index fields = %d, want text+vector", len(created.Fields))
	}
	var haveText, haveVector bool
	for _, f := range created.Fields {
		switch f.Type {
		case db.IndexFieldText:
			haveText = true
		case db.IndexFieldVector:
			haveVector = true
			if f.VectorDim != testVectorDim {
				t.Errorf("vector dim = %d", f.VectorDim)
			}
			if f.VectorAlgo != db.VectorHNSW || f.VectorDistance != db.DistanceCosine {
				t.Errorf("vector index = %s/%s, want HNSW/COSINE", f.VectorAlgo, f.VectorDistance)
			}
		}
	}
	if !haveText || !haveVector {
		t.Error("base index must carry both the lexical and the vector field")
	}
	if len(report.Fields) != len(vocab.SchemaFieldNames()) {
		t.Errorf("provisioned fields = %d, want %d", len(report.Fields), len(vocab.SchemaFieldNames()))
	}
}

func TestRecreate_DropsPreviousGeneration(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	var dropped, cleared bool
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		dropped = true
		return nil
	}
	ms.delPatternFn = func(_ context.Context, pattern string) (int, error) {
		cleared = true
		if pattern != "jetkart:travel:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return 42, nil
	}

	report, err := repo.Recreate(ctx, col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !cleared {
		t.Error("previous generation should be dropped and cleared")
	}
	if !report.Recreated {
		t.Error("Recreated should be true")
	}
}

func TestRecreate_CreateIndexError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}

	_, err := repo.Recreate(ctx, testCollection(t))
	if err == nil {
		t.Fatal("expected error on FT.CREATE failure")
	}
}

func TestRecreate_PayloadFieldFailureIsIsolated(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.alterAddFieldFn = func(_ context.Context, _ string, f db.IndexField) error {
		if f.Name == "alliance" {
			return errors.New("alter failed")
		}
		return nil
	}

	report, err := repo.Recreate(ctx, testCollection(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var failed, succeeded int
	for _, fp := range report.Fields {
		if fp.OK {
			succeeded++
		} else {
			failed++
			if fp.Field != "alliance" {
				t.Errorf("unexpected failed field: %s", fp.Field)
			}
			if fp.Error == "" {
				t.Error("failed field should carry the error text")
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed fields = %d, want 1", failed)
	}
	if succeeded != len(vocab.SchemaFieldNames())-1 {
		t.Errorf("succeeded fields = %d", succeeded)
	}
}

func TestRecreate_FieldExistsIsNotAFailure(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.alterAddFieldFn = func(_ context.Context, _ string, _ db.IndexField) error {
		return db.ErrFieldExists
	}

	report, err := repo.Recreate(ctx, testCollection(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fp := range report.Fields {
		if !fp.OK {
			t.Errorf("field %s reported as failed for ErrFieldExists", fp.Field)
		}
	}
}

func TestRecreate_PriceFieldIsNumeric(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	fieldTypes := map[string]db.IndexFieldType{}
	ms.alterAddFieldFn = func(_ context.Context, _ string, f db.IndexField) error {
		fieldTypes[f.Name] = f.Type
		return nil
	}

	if _, err := repo.Recreate(ctx, testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fieldTypes["price_usd"] != db.IndexFieldNumeric {
		t.Error("price_usd should index as NUMERIC")
	}
	if fieldTypes["airline"] != db.IndexFieldTag {
		t.Error("airline should index as TAG")
	}
	if fieldTypes["refundable"] != db.IndexFieldTag {
		t.Error("bool fields should index as TAG")
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "jetkart:collections:travel" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"name":       "travel",
			"vector_dim": "768",
			"vocabulary": `{"fields":[{"name":"airline","type":"keyword","values":["Emirates"]}],"price":{"min":300,"max":4000,"buckets":[{"label":"Budget","min":0,"max":500}]}}`,
			"created_at": "1700000000",
		}, nil
	}

	col, err := repo.Get(ctx, "travel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "travel" || col.VectorDim() != 768 {
		t.Errorf("collection = %s/%d", col.Name(), col.VectorDim())
	}
	f, ok := col.Vocabulary().FieldByName("airline")
	if !ok {
		t.Fatal("vocabulary lost in round-trip")
	}
	if len(f.Values()) != 1 || f.Values()[0] != "Emirates" {
		t.Errorf("airline values = %v", f.Values())
	}
	if col.Vocabulary().Price().Min != 300 {
		t.Errorf("price min = %d", col.Vocabulary().Price().Min)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(ctx, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_CorruptMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"name": "travel", "vector_dim": "not-a-number"}, nil
	}

	if _, err := repo.Get(ctx, "travel"); err == nil {
		t.Fatal("expected error for corrupt vector_dim")
	}
}

// --- SaveVocabulary ---

func TestSaveVocabulary(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var saved map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != "jetkart:collections:travel" {
			t.Errorf("unexpected key: %s", key)
		}
		saved = fields
		return nil
	}

	if err := repo.SaveVocabulary(ctx, "travel", testCollection(t).Vocabulary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved["vocabulary"] == "" {
		t.Fatal("vocabulary field not written")
	}
	// Only the vocabulary field is touched.
	if len(saved) != 1 {
		t.Errorf("saved fields = %v, want vocabulary only", saved)
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var dropped, cleared bool
	var metaDeleted string
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		dropped = true
		return nil
	}
	ms.delPatternFn = func(_ context.Context, _ string) (int, error) {
		cleared = true
		return 5, nil
	}
	ms.delFn = func(_ context.Context, key string) error {
		metaDeleted = key
		return nil
	}

	if err := repo.Delete(ctx, "travel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !cleared {
		t.Error("delete should drop the index and clear the corpus")
	}
	if metaDeleted != "jetkart:collections:travel" {
		t.Errorf("metadata key deleted = %q, want jetkart:collections:travel", metaDeleted)
	}
}

// The corpus key pattern must not reach the metadata hash: a collection
// deleted and then fetched has to come back ErrNotFound.
func TestDelete_RemovesMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	meta := map[string]string{
		"name":       "travel",
		"vector_dim": "768",
	}
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.delFn = func(_ context.Context, key string) error {
		if key == "jetkart:collections:travel" {
			meta = nil
		}
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key == "jetkart:collections:travel" && meta != nil {
			return meta, nil
		}
		return map[string]string{}, nil
	}

	if err := repo.Delete(ctx, "travel"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "travel"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestDelete_MetadataError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.delFn = func(_ context.Context, _ string) error {
		return errors.New("connection lost")
	}

	if err := repo.Delete(ctx, "travel"); err == nil {
		t.Fatal("expected error when metadata deletion fails")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }

	err := repo.Delete(ctx, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Vocabulary round-trip ---

func TestVocabJSON_RoundTrip(t *testing.T) {
	v := testCollection(t).Vocabulary()
	data, err := vocabToJSON(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := vocabFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Fields()) != len(v.Fields()) {
		t.Errorf("fields = %d, want %d", len(got.Fields()), len(v.Fields()))
	}
	if got.Price().Min != v.Price().Min || got.Price().Max != v.Price().Max {
		t.Errorf("price = %+v", got.Price())
	}
	if len(got.Price().Buckets) != len(v.Price().Buckets) {
		t.Errorf("buckets = %d", len(got.Price().Buckets))
	}
}

func TestVocabFromJSON_Empty(t *testing.T) {
	v, err := vocabFromJSON("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsEmpty() {
		t.Error("empty payload should yield empty vocabulary")
	}
}
