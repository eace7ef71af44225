package ask

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/label"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// --- Mocks ---

type mockClassifier struct {
	lbl         label.Label
	err         error
	hadDeadline bool
}

func (m *mockClassifier) Classify(ctx context.Context, _ string) (label.Label, error) {
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return label.Both, m.err
	}
	return m.lbl, nil
}

type mockSynth struct {
	set     filter.Set
	dropped []filter.Dropped
	err     error
	called  bool
}

func (m *mockSynth) Synthesize(
	_ context.Context, _ string, _ vocab.Vocabulary,
) (filter.Set, []filter.Dropped, error) {
	m.called = true
	if m.err != nil {
		return filter.NewSet(), nil, m.err
	}
	return m.set, m.dropped, nil
}

type retrieveCall struct {
	filters filter.Set
	path    domain.Path
}

type mockRetriever struct {
	flight    []domain.Candidate
	info      []domain.Candidate
	flightErr error
	infoErr   error

	mu    sync.Mutex
	calls []retrieveCall
}

func newMockRetriever() *mockRetriever {
	return &mockRetriever{}
}

func (m *mockRetriever) Retrieve(
	_ context.Context, _ string, _ string,
	filters filter.Set, _ int, path domain.Path,
) ([]domain.Candidate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, retrieveCall{filters: filters, path: path})
	m.mu.Unlock()

	if path == domain.PathFlight {
		return m.flight, m.flightErr
	}
	return m.info, m.infoErr
}

func (m *mockRetriever) callFor(path domain.Path) (retrieveCall, bool) {
	for _, c := range m.calls {
		if c.path == path {
			return c, true
		}
	}
	return retrieveCall{}, false
}

type mockReranker struct {
	err error
}

func (m *mockReranker) Rerank(
	_ context.Context, _ string, cands []domain.Candidate, topN int,
) ([]domain.Candidate, error) {
	if topN > 0 && len(cands) > topN {
		cands = cands[:topN]
	}
	return cands, m.err
}

type mockAnswerer struct {
	answer string
	err    error
}

func (m *mockAnswerer) Answer(_ context.Context, _ string, _ []domain.Candidate) (string, error) {
	return m.answer, m.err
}

type mockColls struct {
	col domain.Collection
	err error
}

func (m *mockColls) Get(_ context.Context, _ string) (domain.Collection, error) {
	return m.col, m.err
}

func testCollection(t *testing.T) domain.Collection {
	t.Helper()
	airline, err := vocab.NewField("airline", vocab.Keyword, []string{"Emirates"})
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	v, err := vocab.New([]vocab.Field{airline}, vocab.PriceStats{Buckets: vocab.DefaultBuckets()})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	col, err := domain.NewCollection("travel", 768)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	return col.WithVocabulary(v)
}

func flightCand(id string) domain.Candidate {
	return domain.NewCandidate(id, 0.9, domain.PathFlight, "flight "+id, nil, nil)
}

func infoCand(id string) domain.Candidate {
	return domain.NewCandidate(id, 0.8, domain.PathInfo, "policy "+id, nil, nil)
}

type fixture struct {
	classifier *mockClassifier
	synth      *mockSynth
	retriever  *mockRetriever
	reranker   *mockReranker
	answerer   *mockAnswerer
	colls      *mockColls
}

func newFixture(t *testing.T, lbl label.Label) *fixture {
	t.Helper()
	return &fixture{
		classifier: &mockClassifier{lbl: lbl},
		synth:      &mockSynth{set: filter.NewSet()},
		retriever:  newMockRetriever(),
		reranker:   &mockReranker{},
		answerer:   &mockAnswerer{answer: "here is the answer"},
		colls:      &mockColls{col: testCollection(t)},
	}
}

func (f *fixture) service() *Service {
	return New(f.classifier, f.synth, f.retriever, f.reranker, f.answerer, f.colls, Config{})
}

// --- Tests ---

func TestAsk_FlightQueryAppliesSynthesizedFilters(t *testing.T) {
	f := newFixture(t, label.Flight)
	eq, err := filter.NewEquals("Emirates")
	if err != nil {
		t.Fatalf("NewEquals: %v", err)
	}
	set, err := filter.NewSet().Add("airline", eq)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.synth.set = set
	f.retriever.flight = []domain.Candidate{flightCand("f1")}

	res, err := f.service().Ask(context.Background(), "travel", "Emirates flights to Dubai", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Label != label.Flight {
		t.Errorf("label = %q", res.Label)
	}
	if res.FilterState != FilterStateApplied {
		t.Errorf("filter state = %q, want applied", res.FilterState)
	}
	call, ok := f.retriever.callFor(domain.PathFlight)
	if !ok {
		t.Fatal("flight retrieval must run")
	}
	if p, ok := call.filters.Get("airline"); !ok || p.Equals() != "Emirates" {
		t.Error("synthesized filters must reach retrieval as hard pre-filters")
	}
	if _, ok := f.retriever.callFor(domain.PathInfo); ok {
		t.Error("info path must not run for a flight query")
	}
	if res.Answer != "here is the answer" {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestAsk_BudgetCoversClassification(t *testing.T) {
	f := newFixture(t, label.Info)
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	_, err := f.service().Ask(context.Background(), "travel", "refund policies?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.classifier.hadDeadline {
		t.Error("classification must run under the per-query deadline")
	}
}

func TestAsk_InfoQuerySkipsFilterSynthesis(t *testing.T) {
	f := newFixture(t, label.Info)
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	res, err := f.service().Ask(context.Background(), "travel", "refund policies?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.synth.called {
		t.Error("filter synthesis must not run for an info query")
	}
	if res.FilterState != FilterStateNone {
		t.Errorf("filter state = %q, want none", res.FilterState)
	}
	call, ok := f.retriever.callFor(domain.PathInfo)
	if !ok {
		t.Fatal("info retrieval must run")
	}
	if !call.filters.IsEmpty() {
		t.Error("info path retrieval must be unfiltered")
	}
}

func TestAsk_BothRunsBothPathsAndMerges(t *testing.T) {
	f := newFixture(t, label.Both)
	f.retriever.flight = []domain.Candidate{flightCand("f1"), flightCand("f2")}
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	res, err := f.service().Ask(context.Background(), "travel", "flights to Japan and visa rules", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var hasFlight, hasInfo bool
	for _, c := range res.Evidence {
		switch c.Path() {
		case domain.PathFlight:
			hasFlight = true
		case domain.PathInfo:
			hasInfo = true
		}
	}
	if !hasFlight || !hasInfo {
		t.Errorf("merged evidence must contain both paths, got %d candidates", len(res.Evidence))
	}
	if len(f.retriever.calls) != 2 {
		t.Errorf("expected 2 retrievals, got %d", len(f.retriever.calls))
	}
}

func TestAsk_ClassifierFailureDegradesToBoth(t *testing.T) {
	f := newFixture(t, label.Flight)
	f.classifier.err = domain.ErrClassifierUnavailable
	f.retriever.flight = []domain.Candidate{flightCand("f1")}
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("classifier failure must not fail the query: %v", err)
	}
	if res.Label != label.Both {
		t.Errorf("label = %q, want both fallback", res.Label)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a degradation warning")
	}
	if len(f.retriever.calls) != 2 {
		t.Error("both paths must run under the fallback label")
	}
}

func TestAsk_FilterSynthesisFailureIsDistinctFromEmpty(t *testing.T) {
	f := newFixture(t, label.Flight)
	f.synth.err = domain.ErrFilterSynthesisInvalid
	f.retriever.flight = []domain.Candidate{flightCand("f1")}

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("synthesis failure must degrade, not fail: %v", err)
	}
	if res.FilterState != FilterStateFailed {
		t.Errorf("filter state = %q, want failed", res.FilterState)
	}
	if !res.Filters.IsEmpty() {
		t.Error("failed synthesis retrieves unfiltered")
	}

	call, ok := f.retriever.callFor(domain.PathFlight)
	if !ok || !call.filters.IsEmpty() {
		t.Error("degraded flight retrieval must run unfiltered")
	}

	warned := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "filter synthesis failed") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a filter synthesis warning")
	}
}

func TestAsk_OnePathLostDegradesWithWarning(t *testing.T) {
	f := newFixture(t, label.Both)
	f.retriever.flightErr = domain.ErrRetrievalUnavailable
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("one lost path must not fail the query: %v", err)
	}
	if len(res.Evidence) != 1 || res.Evidence[0].Path() != domain.PathInfo {
		t.Errorf("expected the surviving path's evidence, got %v", res.Evidence)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a lost-path warning")
	}
}

func TestAsk_AllPathsLostIsFatal(t *testing.T) {
	f := newFixture(t, label.Both)
	f.retriever.flightErr = domain.ErrRetrievalUnavailable
	f.retriever.infoErr = domain.ErrRetrievalUnavailable

	_, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrFlightPathLost) || !errors.Is(err, domain.ErrInfoPathLost) {
		t.Errorf("fatal error must name both lost paths, got %v", err)
	}
}

func TestAsk_RerankFailureKeepsEvidence(t *testing.T) {
	f := newFixture(t, label.Info)
	f.retriever.info = []domain.Candidate{infoCand("i1"), infoCand("i2")}
	f.reranker.err = domain.ErrRerankUnavailable

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("rerank failure must degrade, not fail: %v", err)
	}
	if len(res.Evidence) != 2 {
		t.Errorf("identity fallback evidence lost: %v", res.Evidence)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a rerank degradation warning")
	}
}

func TestAsk_AnswerFailureReturnsEvidenceOnly(t *testing.T) {
	f := newFixture(t, label.Info)
	f.retriever.info = []domain.Candidate{infoCand("i1")}
	f.answerer.err = domain.ErrAnswerUnavailable

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("answer failure must degrade, not fail: %v", err)
	}
	if res.Answer != "" {
		t.Errorf("answer = %q, want empty", res.Answer)
	}
	if len(res.Evidence) != 1 {
		t.Error("evidence must survive answer synthesis failure")
	}
}

func TestAsk_UnknownCollectionFails(t *testing.T) {
	f := newFixture(t, label.Info)
	f.colls.err = domain.ErrNotFound

	_, err := f.service().Ask(context.Background(), "nope", "q", 0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAsk_TopKOverridesEvidenceBudget(t *testing.T) {
	f := newFixture(t, label.Info)
	f.retriever.info = []domain.Candidate{infoCand("i1"), infoCand("i2"), infoCand("i3")}

	res, err := f.service().Ask(context.Background(), "travel", "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Evidence) != 2 {
		t.Errorf("evidence = %d, want 2", len(res.Evidence))
	}
}

func TestAsk_RecordsStageTimings(t *testing.T) {
	f := newFixture(t, label.Both)
	f.retriever.flight = []domain.Candidate{flightCand("f1")}
	f.retriever.info = []domain.Candidate{infoCand("i1")}

	res, err := f.service().Ask(context.Background(), "travel", "q", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, stage := range []string{"classify", "flight_path", "info_path", "answer", "total"} {
		if _, ok := res.Timings[stage]; !ok {
			t.Errorf("missing timing for stage %q", stage)
		}
	}
}
