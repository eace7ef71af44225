package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/vocab"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
)

const systemPromptTemplate = `You are a travel filter extractor. Given a flight search query, emit a JSON object mapping field names to constraints. Only use fields from this vocabulary:
%s
Constraint forms:
- exact value: "airline": "Emirates"
- set membership: "travel_class": ["business", "first"]
- boolean: "refundable": true
- numeric range: "price_usd": {"lt": 2000} (keys: gt, gte, lt, lte)
Interpret bounds inclusively unless the query implies a strict one ("under $2000" means lt 2000). For vague amounts ("around $2000", "cheap") pick the surrounding suggested price bucket. Emit {} when the query carries no filterable constraints. Respond with JSON only.`

// Service converts the flight-relevant portion of a query into a
// predicate set over the filter vocabulary. Invalid fields and values
// are dropped with a warning; a partially-filtered result beats no
// result.
type Service struct {
	completer domain.Completer
}

// New creates a filter synthesis service.
func New(completer domain.Completer) *Service {
	return &Service{completer: completer}
}

// Synthesize produces the validated predicate set for a query plus the
// entries validation dropped. When the model output cannot be parsed at
// all it returns an empty set together with a wrapped
// domain.ErrFilterSynthesisInvalid; callers treat that as "filtering
// failed", distinct from a legitimately empty set.
func (s *Service) Synthesize(
	ctx context.Context, query string, v vocab.Vocabulary,
) (filter.Set, []filter.Dropped, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("filter_synthesis").Observe(time.Since(start).Seconds())
	}()

	vocabJSON, err := v.PromptJSON()
	if err != nil {
		return filter.NewSet(), nil, fmt.Errorf("%w: %w", domain.ErrFilterSynthesisInvalid, err)
	}

	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		UseCase:     domain.UseCaseFilters,
		System:      fmt.Sprintf(systemPromptTemplate, vocabJSON),
		User:        query,
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		metrics.PipelineFallbacksTotal.WithLabelValues("filter_synthesis").Inc()
		return filter.NewSet(), nil, fmt.Errorf("%w: %w", domain.ErrFilterSynthesisInvalid, err)
	}

	raw, parseDropped, err := parseConstraints(out, v)
	if err != nil {
		metrics.PipelineFallbacksTotal.WithLabelValues("filter_synthesis").Inc()
		return filter.NewSet(), nil, fmt.Errorf("%w: %w", domain.ErrFilterSynthesisInvalid, err)
	}

	valid, dropped := filter.Validate(raw, v)
	dropped = append(parseDropped, dropped...)
	for _, d := range dropped {
		logger.FromContext(ctx).Warn("dropped synthesized predicate",
			zap.String("field", d.Field), zap.String("reason", d.Reason))
	}

	return valid, dropped, nil
}

// parseConstraints maps the model's JSON object onto predicates. A
// malformed constraint drops that field only; a malformed document
// fails the whole synthesis.
func parseConstraints(out string, v vocab.Vocabulary) (filter.Set, []filter.Dropped, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return filter.Set{}, nil, fmt.Errorf("parse synthesizer output: %w", err)
	}

	fields := make([]string, 0, len(doc))
	for field := range doc {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	set := filter.NewSet()
	var dropped []filter.Dropped

	for _, field := range fields {
		p, reason := parsePredicate(field, doc[field], v)
		if reason != "" {
			dropped = append(dropped, filter.Dropped{Field: field, Reason: reason})
			continue
		}
		next, err := set.Add(field, p)
		if err != nil {
			dropped = append(dropped, filter.Dropped{Field: field, Reason: err.Error()})
			continue
		}
		set = next
	}

	return set, dropped, nil
}

func parsePredicate(field string, raw any, v vocab.Vocabulary) (filter.Predicate, string) {
	switch val := raw.(type) {
	case string:
		p, err := filter.NewEquals(val)
		if err != nil {
			return filter.Predicate{}, err.Error()
		}
		return p, ""

	case bool:
		return filter.NewBool(val), ""

	case []any:
		values := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return filter.Predicate{}, "membership values must be strings"
			}
			values = append(values, s)
		}
		p, err := filter.NewIn(values)
		if err != nil {
			return filter.Predicate{}, err.Error()
		}
		return p, ""

	case map[string]any:
		return parseRange(val)

	case float64:
		return bucketPredicate(field, val, v)
	}

	return filter.Predicate{}, fmt.Sprintf("unsupported constraint shape %T", raw)
}

func parseRange(obj map[string]any) (filter.Predicate, string) {
	bounds := make(map[string]*float64, 4)
	for _, key := range []string{"gt", "gte", "lt", "lte"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		n, ok := raw.(float64)
		if !ok {
			return filter.Predicate{}, fmt.Sprintf("range bound %q is not a number", key)
		}
		bounds[key] = &n
	}

	r, err := filter.NewRange(bounds["gt"], bounds["gte"], bounds["lt"], bounds["lte"])
	if err != nil {
		return filter.Predicate{}, err.Error()
	}
	return filter.NewRangePredicate(r), ""
}

// bucketPredicate maps a bare numeric constraint onto the suggested
// price bucket surrounding the amount. This is the documented
// best-effort policy for vague amounts the model could not turn into an
// explicit bound.
func bucketPredicate(field string, amount float64, v vocab.Vocabulary) (filter.Predicate, string) {
	f, ok := v.FieldByName(field)
	if !ok || f.FieldType() != vocab.Integer {
		return filter.Predicate{}, "bare numeric constraint on non-integer field"
	}

	b, ok := v.Price().BucketFor(int(amount))
	if !ok {
		return filter.Predicate{}, fmt.Sprintf("no price bucket for amount %v", amount)
	}

	gte := float64(b.Min)
	var lt *float64
	if b.Max > 0 {
		max := float64(b.Max)
		lt = &max
	}
	r, err := filter.NewRange(nil, &gte, lt, nil)
	if err != nil {
		return filter.Predicate{}, err.Error()
	}
	return filter.NewRangePredicate(r), ""
}
