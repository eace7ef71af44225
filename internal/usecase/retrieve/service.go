package retrieve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
)

// Service executes filtered hybrid retrieval: the query is embedded,
// the dense and sparse sub-searches run concurrently with the predicate
// set compiled into each as a hard pre-filter, and the two rankings are
// fused deterministically. Returns up to k candidates and never pads a
// selective filter with unfiltered results.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a hybrid retrieval service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Retrieve runs the hybrid search for one path. One sub-search failing
// degrades to the other's ranking with a warning; both failing returns
// a wrapped domain.ErrRetrievalUnavailable, fatal for this path.
func (s *Service) Retrieve(
	ctx context.Context, collection, query string,
	filters filter.Set, k int, path domain.Path,
) ([]domain.Candidate, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalUnavailable, err)
	}

	var (
		wg      sync.WaitGroup
		knn     []domain.Candidate
		bm25    []domain.Candidate
		knnErr  error
		bm25Err error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		knn, knnErr = s.repo.SearchKNN(ctx, collection, emb.Embedding, filters, k, path)
	}()
	go func() {
		defer wg.Done()
		bm25, bm25Err = s.repo.SearchBM25(ctx, collection, query, filters, k, path)
	}()
	wg.Wait()

	if knnErr != nil && bm25Err != nil {
		return nil, fmt.Errorf("%w: knn: %w; bm25: %w", domain.ErrRetrievalUnavailable, knnErr, bm25Err)
	}
	if knnErr != nil {
		logger.FromContext(ctx).Warn("dense sub-search failed, using sparse ranking only",
			zap.String("collection", collection), zap.Error(knnErr))
		metrics.PipelineFallbacksTotal.WithLabelValues("retrieve").Inc()
	}
	if bm25Err != nil {
		logger.FromContext(ctx).Warn("sparse sub-search failed, using dense ranking only",
			zap.String("collection", collection), zap.Error(bm25Err))
		metrics.PipelineFallbacksTotal.WithLabelValues("retrieve").Inc()
	}

	return fuseRRF(knn, bm25, k), nil
}
