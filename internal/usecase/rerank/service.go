package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
)

const systemPrompt = `You are a travel search reranker. Score each candidate document for relevance to the user query on a 0.0-1.0 scale. Omit candidates that are clearly irrelevant. Respond with JSON: {"ranking": [{"id": "<candidate id>", "score": <0.0-1.0>}, ...]} ordered from most to least relevant. Use only IDs from the candidate list.`

// maxContentChars bounds the per-candidate text sent to the model.
const maxContentChars = 500

// Service reorders a candidate set with an LLM scoring pass against
// the literal query. It is a pure reordering and truncation step: it
// may drop candidates but never invents them, and on any provider or
// parse failure it falls back to the pre-rerank order so a slow or
// unavailable reranker degrades quality, not availability.
type Service struct {
	completer domain.Completer
}

// New creates a reranking service.
func New(completer domain.Completer) *Service {
	return &Service{completer: completer}
}

// Rerank scores and reorders candidates, truncating to topN. On
// failure it returns the input order (truncated) together with a
// wrapped domain.ErrRerankUnavailable; callers treat the error as a
// warning.
func (s *Service) Rerank(
	ctx context.Context, query string, cands []domain.Candidate, topN int,
) ([]domain.Candidate, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("rerank").Observe(time.Since(start).Seconds())
	}()

	if len(cands) == 0 {
		return nil, nil
	}

	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		UseCase:     domain.UseCaseRerank,
		System:      systemPrompt,
		User:        buildPrompt(query, cands),
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return s.fallback(ctx, cands, topN, err)
	}

	ranked, err := applyRanking(out, cands)
	if err != nil {
		return s.fallback(ctx, cands, topN, err)
	}

	return truncate(ranked, topN), nil
}

// fallback returns the identity ordering with the failure attached as
// a warning error.
func (s *Service) fallback(
	ctx context.Context, cands []domain.Candidate, topN int, cause error,
) ([]domain.Candidate, error) {
	logger.FromContext(ctx).Warn("reranker unavailable, keeping retrieval order", zap.Error(cause))
	metrics.PipelineFallbacksTotal.WithLabelValues("rerank").Inc()
	return truncate(cands, topN), fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, cause)
}

func buildPrompt(query string, cands []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nCandidates:\n")
	for _, c := range cands {
		fmt.Fprintf(&b, "[%s] %s\n", c.ID(), truncateContent(c.Content(), maxContentChars))
	}
	return b.String()
}

// truncateContent cuts on a rune boundary so the prompt stays valid
// UTF-8.
func truncateContent(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// applyRanking maps the model's ranking back onto the input set. IDs
// not present in the input are discarded, which enforces the subset
// invariant. A ranking that keeps nothing is treated as a parse
// failure rather than an empty result.
func applyRanking(out string, cands []domain.Candidate) ([]domain.Candidate, error) {
	var parsed struct {
		Ranking []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"ranking"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("parse reranker output: %w", err)
	}

	byID := make(map[string]domain.Candidate, len(cands))
	for _, c := range cands {
		byID[c.ID()] = c
	}

	seen := make(map[string]bool, len(parsed.Ranking))
	ranked := make([]domain.Candidate, 0, len(parsed.Ranking))
	for _, r := range parsed.Ranking {
		c, ok := byID[r.ID]
		if !ok || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		ranked = append(ranked, c.WithScore(r.Score))
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("ranking kept no input candidates")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	return ranked, nil
}

func truncate(cands []domain.Candidate, topN int) []domain.Candidate {
	if topN > 0 && len(cands) > topN {
		return cands[:topN]
	}
	return cands
}
