package collection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/db"
	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/vocab"
	"github.com/jetkart/jetkart/internal/logger"
)

// store is the consumer interface for collection provisioning (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	DelPattern(ctx context.Context, pattern string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	AlterAddField(ctx context.Context, indexName string, f db.IndexField) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo manages collection lifecycle and metadata.
type Repo struct {
	store store
	hnsw  HNSWConfig
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Recreate destructively replaces any same-named collection: the old
// generation (index, corpus keys, metadata) is dropped, the base index
// (dense HNSW cosine vector + sparse lexical TEXT) is created, then one
// payload index per vocabulary field is added via FT.ALTER. Payload
// index failures are independent and collected into the report; the
// collection is never thrown away on a partial failure.
func (r *Repo) Recreate(ctx context.Context, col domain.Collection) (domain.ProvisionReport, error) {
	name := col.Name()
	idxName := indexName(name)
	report := domain.ProvisionReport{Collection: name, VectorDim: col.VectorDim()}
	log := logger.FromContext(ctx)

	exists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return report, fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		if err := r.store.DropIndex(ctx, idxName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return report, fmt.Errorf("drop index %s: %w", name, err)
		}
		deleted, err := r.store.DelPattern(ctx, keyPattern(name))
		if err != nil {
			return report, fmt.Errorf("clear collection %s: %w", name, err)
		}
		report.Recreated = true
		log.Info("dropped previous collection generation",
			zap.String("collection", name), zap.Int("keys_deleted", deleted))
	}

	def := baseIndex(name, col.VectorDim(), r.hnsw)
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return report, fmt.Errorf("create index %s: %w", name, err)
	}

	report.Fields = r.provisionPayloadFields(ctx, idxName)

	hashData, err := collectionToHash(col)
	if err != nil {
		return report, err
	}
	if err := r.store.HSet(ctx, metaKey(name), hashData); err != nil {
		return report, fmt.Errorf("hset collection %s: %w", name, err)
	}

	return report, nil
}

// provisionPayloadFields adds one payload index per fixed-schema field.
// One field failing must not prevent the others from being created.
func (r *Repo) provisionPayloadFields(ctx context.Context, idxName string) []domain.FieldProvision {
	log := logger.FromContext(ctx)
	names := vocab.SchemaFieldNames()
	results := make([]domain.FieldProvision, 0, len(names))

	for _, fieldName := range names {
		ft, _ := vocab.SchemaType(fieldName)
		fp := domain.FieldProvision{Field: fieldName, Type: string(ft), OK: true}

		err := r.store.AlterAddField(ctx, idxName, payloadField(fieldName, ft))
		if err != nil && !errors.Is(err, db.ErrFieldExists) {
			fp.OK = false
			fp.Error = err.Error()
			log.Warn("payload index creation failed",
				zap.String("field", fieldName), zap.Error(err))
		}
		results = append(results, fp)
	}

	return results
}

// Get retrieves a collection with its vocabulary snapshot.
func (r *Repo) Get(ctx context.Context, name string) (domain.Collection, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domain.Collection{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domain.Collection{}, domain.ErrNotFound
	}
	return collectionFromHash(m)
}

// SaveVocabulary persists a rebuilt vocabulary snapshot after ingestion.
func (r *Repo) SaveVocabulary(ctx context.Context, name string, v vocab.Vocabulary) error {
	data, err := vocabToJSON(v)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, metaKey(name), map[string]string{fieldVocab: data}); err != nil {
		return fmt.Errorf("save vocabulary %s: %w", name, err)
	}
	return nil
}

// Delete removes a collection, its index and its corpus.
func (r *Repo) Delete(ctx context.Context, name string) error {
	exists, err := r.store.IndexExists(ctx, indexName(name))
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.DropIndex(ctx, indexName(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	if _, err := r.store.DelPattern(ctx, keyPattern(name)); err != nil {
		return fmt.Errorf("clear collection %s: %w", name, err)
	}
	// Metadata lives under its own namespace, outside keyPattern.
	if err := r.store.Del(ctx, metaKey(name)); err != nil {
		return fmt.Errorf("delete collection metadata %s: %w", name, err)
	}
	return nil
}

// baseIndex builds the dual-index definition: one dense semantic field
// and one sparse lexical field over the collection's key prefix.
func baseIndex(name string, vectorDim int, hnsw HNSWConfig) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     indexName(name),
		Prefixes: []string{docPrefix(name)},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnsw.M,
				VectorEFConstruct: hnsw.EFConstruct,
			},
		},
	}
}

// payloadField maps a vocabulary type to its index field definition.
// Bool fields index as tags holding "true"/"false".
func payloadField(name string, ft vocab.Type) db.IndexField {
	if ft == vocab.Integer {
		return db.IndexField{Name: name, Type: db.IndexFieldNumeric}
	}
	return db.IndexField{Name: name, Type: db.IndexFieldTag}
}
