package ask

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/label"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/usecase/merge"
)

// Config bounds one query's work.
type Config struct {
	// RetrieveK is the per-path candidate budget for hybrid retrieval.
	RetrieveK int
	// RerankTopN is the per-path evidence budget after reranking.
	RerankTopN int
	// QueryTimeout is the overall per-query budget. On expiry the
	// pipeline returns the best evidence gathered so far.
	QueryTimeout time.Duration
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.RetrieveK <= 0 {
		c.RetrieveK = 20
	}
	if c.RerankTopN <= 0 {
		c.RerankTopN = 5
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 45 * time.Second
	}
}

// Service orchestrates one query through the pipeline: classify, then
// the flight path (filter synthesis, filtered retrieval, rerank) and
// the info path (unfiltered retrieval, rerank) run concurrently when
// classification selects both, then merge and answer synthesis.
// Individual stages degrade through their documented fallbacks; only
// losing the retrieval backend for every selected path is fatal.
type Service struct {
	classifier Classifier
	synth      FilterSynthesizer
	retriever  Retriever
	reranker   Reranker
	answerer   Answerer
	colls      CollectionReader
	cfg        Config
}

// New creates the query pipeline.
func New(
	classifier Classifier, synth FilterSynthesizer, retriever Retriever,
	reranker Reranker, answerer Answerer, colls CollectionReader, cfg Config,
) *Service {
	cfg.ApplyDefaults()
	return &Service{
		classifier: classifier, synth: synth, retriever: retriever,
		reranker: reranker, answerer: answerer, colls: colls, cfg: cfg,
	}
}

// pathOutcome is one retrieval path's contribution to the merge.
type pathOutcome struct {
	cands    []domain.Candidate
	warnings []string
	fatal    error
	elapsed  time.Duration

	// Flight path only.
	filters     filter.Set
	filterState FilterState
	dropped     []filter.Dropped
}

// Ask answers one query against a collection. topK, when positive,
// overrides the configured per-path evidence budget.
func (s *Service) Ask(ctx context.Context, collection, query string, topK int) (Result, error) {
	totalStart := time.Now()
	res := Result{
		Filters:     filter.NewSet(),
		FilterState: FilterStateNone,
		Timings:     make(map[string]time.Duration),
	}

	col, err := s.colls.Get(ctx, collection)
	if err != nil {
		return res, fmt.Errorf("get collection %s: %w", collection, err)
	}

	evidenceN := s.cfg.RerankTopN
	if topK > 0 {
		evidenceN = topK
	}

	// The budget covers every stage, classification included.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	classifyStart := time.Now()
	lbl, err := s.classifier.Classify(ctx, query)
	res.Timings["classify"] = time.Since(classifyStart)
	res.Label = lbl
	if err != nil {
		// Conservative both-fallback already applied by the classifier.
		res.Warnings = append(res.Warnings, fmt.Sprintf("classification degraded: %v", err))
	}

	var (
		wg     sync.WaitGroup
		flight pathOutcome
		info   pathOutcome
	)

	if lbl.IncludesFlight() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			flight = s.flightPath(ctx, collection, query, col, evidenceN)
			flight.elapsed = time.Since(start)
		}()
	}
	if lbl.IncludesInfo() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			info = s.infoPath(ctx, collection, query, evidenceN)
			info.elapsed = time.Since(start)
		}()
	}
	wg.Wait()

	if lbl.IncludesFlight() {
		res.Timings["flight_path"] = flight.elapsed
		res.Filters = flight.filters
		res.FilterState = flight.filterState
		res.Dropped = flight.dropped
	}
	if lbl.IncludesInfo() {
		res.Timings["info_path"] = info.elapsed
	}
	res.Warnings = append(res.Warnings, flight.warnings...)
	res.Warnings = append(res.Warnings, info.warnings...)

	if err := s.checkFatal(ctx, lbl, flight, info, &res); err != nil {
		return res, err
	}

	res.Evidence = merge.Merge(flight.cands, info.cands)

	answerStart := time.Now()
	answer, err := s.answerer.Answer(ctx, query, res.Evidence)
	res.Timings["answer"] = time.Since(answerStart)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("answer synthesis degraded: %v", err))
		logger.FromContext(ctx).Warn("answer synthesis failed, returning evidence only", zap.Error(err))
	} else {
		res.Answer = answer
	}

	res.Timings["total"] = time.Since(totalStart)
	return res, nil
}

// flightPath synthesizes hard filters and runs filtered retrieval plus
// rerank. Filter synthesis failing degrades to unfiltered retrieval;
// the result records that state distinctly from an empty predicate set.
func (s *Service) flightPath(
	ctx context.Context, collection, query string,
	col domain.Collection, evidenceN int,
) pathOutcome {
	var out pathOutcome

	filters, dropped, err := s.synth.Synthesize(ctx, query, col.Vocabulary())
	out.dropped = dropped
	switch {
	case err != nil:
		out.filterState = FilterStateFailed
		filters = filter.NewSet()
		out.warnings = append(out.warnings, fmt.Sprintf("filter synthesis failed, retrieving unfiltered: %v", err))
	case filters.IsEmpty():
		out.filterState = FilterStateNone
	default:
		out.filterState = FilterStateApplied
	}
	out.filters = filters

	cands, err := s.retriever.Retrieve(ctx, collection, query, filters, s.cfg.RetrieveK, domain.PathFlight)
	if err != nil {
		out.fatal = fmt.Errorf("%w: %w", domain.ErrFlightPathLost, err)
		return out
	}

	ranked, err := s.reranker.Rerank(ctx, query, cands, evidenceN)
	if err != nil {
		out.warnings = append(out.warnings, fmt.Sprintf("flight path rerank degraded: %v", err))
	}
	out.cands = ranked
	return out
}

// infoPath runs unfiltered retrieval plus rerank over the document
// corpus side.
func (s *Service) infoPath(ctx context.Context, collection, query string, evidenceN int) pathOutcome {
	var out pathOutcome

	cands, err := s.retriever.Retrieve(ctx, collection, query, filter.NewSet(), s.cfg.RetrieveK, domain.PathInfo)
	if err != nil {
		out.fatal = fmt.Errorf("%w: %w", domain.ErrInfoPathLost, err)
		return out
	}

	ranked, err := s.reranker.Rerank(ctx, query, cands, evidenceN)
	if err != nil {
		out.warnings = append(out.warnings, fmt.Sprintf("info path rerank degraded: %v", err))
	}
	out.cands = ranked
	return out
}

// checkFatal decides whether the query failed. Losing one of two paths
// degrades with a warning; losing every selected path is fatal unless
// the per-query budget expired, in which case the best evidence
// gathered so far is returned.
func (s *Service) checkFatal(
	ctx context.Context, lbl label.Label, flight, info pathOutcome, res *Result,
) error {
	var fatals []error
	if lbl.IncludesFlight() && flight.fatal != nil {
		fatals = append(fatals, flight.fatal)
	}
	if lbl.IncludesInfo() && info.fatal != nil {
		fatals = append(fatals, info.fatal)
	}
	if len(fatals) == 0 {
		return nil
	}

	selected := 0
	if lbl.IncludesFlight() {
		selected++
	}
	if lbl.IncludesInfo() {
		selected++
	}

	if len(fatals) < selected {
		for _, f := range fatals {
			res.Warnings = append(res.Warnings, fmt.Sprintf("retrieval path lost: %v", f))
		}
		return nil
	}

	// Budget expiry is not an error: return what was gathered.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Warnings = append(res.Warnings, "query budget exceeded, returning partial evidence")
		return nil
	}

	return fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, errors.Join(fatals...))
}
