package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/label"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
)

const systemPrompt = `You are a travel query classifier. Classify the user query into exactly one of three labels:
- "flight": the query asks for specific flights (routes, airlines, prices, cabin class, amenities).
- "info": the query asks about travel policies or documents (visa rules, refund policies, baggage rules).
- "both": the query mixes a flight lookup with a policy question.
Respond with JSON: {"label": "<flight|info|both>"}`

// Service labels queries as flight, info or both with one LLM call.
// Any provider or parse failure degrades to the conservative label
// Both so that no retrieval path is silently dropped.
type Service struct {
	completer domain.Completer
}

// New creates a classification service.
func New(completer domain.Completer) *Service {
	return &Service{completer: completer}
}

// Classify labels the query. On failure it returns label.Both together
// with a wrapped domain.ErrClassifierUnavailable; callers treat the
// error as a warning, not a query failure.
func (s *Service) Classify(ctx context.Context, query string) (label.Label, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	}()

	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		UseCase:     domain.UseCaseClassify,
		System:      systemPrompt,
		User:        query,
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   32,
	})
	if err != nil {
		metrics.PipelineFallbacksTotal.WithLabelValues("classify").Inc()
		return label.Both, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	lbl, err := parseLabel(out)
	if err != nil {
		logger.FromContext(ctx).Warn("classifier returned malformed output",
			zap.String("output", out), zap.Error(err))
		metrics.PipelineFallbacksTotal.WithLabelValues("classify").Inc()
		return label.Both, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	return lbl, nil
}

// parseLabel accepts the JSON contract and, failing that, scans the raw
// text for a label token. Models occasionally wrap the JSON in prose.
func parseLabel(out string) (label.Label, error) {
	var parsed struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err == nil {
		if lbl, err := label.Parse(parsed.Label); err == nil {
			return lbl, nil
		}
	}

	lowered := strings.ToLower(out)
	for _, lbl := range []label.Label{label.Both, label.Flight, label.Info} {
		if strings.Contains(lowered, string(lbl)) {
			return lbl, nil
		}
	}

	return "", fmt.Errorf("no label in output %q", out)
}
