package chi

import (
	"time"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/filter"
	"github.com/jetkart/jetkart/internal/domain/travel"
	"github.com/jetkart/jetkart/internal/usecase/ask"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createCollectionRequest struct {
	Name      string `json:"name"`
	VectorDim int    `json:"vector_dim"`
}

type fieldProvisionDTO struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type provisionResponse struct {
	Collection string              `json:"collection"`
	VectorDim  int                 `json:"vector_dim"`
	Recreated  bool                `json:"recreated"`
	Fields     []fieldProvisionDTO `json:"fields"`
}

func provisionToDTO(r domain.ProvisionReport) provisionResponse {
	fields := make([]fieldProvisionDTO, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = fieldProvisionDTO{Field: f.Field, Type: f.Type, OK: f.OK, Error: f.Error}
	}
	return provisionResponse{
		Collection: r.Collection,
		VectorDim:  r.VectorDim,
		Recreated:  r.Recreated,
		Fields:     fields,
	}
}

type ingestDocumentDTO struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

type ingestRequest struct {
	Flights   []travel.Flight     `json:"flights,omitempty"`
	Documents []ingestDocumentDTO `json:"documents,omitempty"`
}

type ingestResponse struct {
	FlightsIngested int `json:"flights_ingested"`
	ChunksIngested  int `json:"chunks_ingested"`
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type candidateDTO struct {
	ID       string             `json:"id"`
	Score    float64            `json:"score"`
	Path     string             `json:"path"`
	Content  string             `json:"content"`
	Tags     map[string]string  `json:"tags,omitempty"`
	Numerics map[string]float64 `json:"numerics,omitempty"`
}

type droppedFilterDTO struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type queryResponse struct {
	Answer         string             `json:"answer"`
	Classification string             `json:"classification"`
	FilterState    string             `json:"filter_state"`
	FiltersApplied map[string]any     `json:"filters_applied"`
	DroppedFilters []droppedFilterDTO `json:"dropped_filters,omitempty"`
	Evidence       []candidateDTO     `json:"evidence"`
	Warnings       []string           `json:"warnings,omitempty"`
	TimingsMS      map[string]float64 `json:"timings_ms"`
}

func resultToDTO(r ask.Result) queryResponse {
	evidence := make([]candidateDTO, len(r.Evidence))
	for i, c := range r.Evidence {
		evidence[i] = candidateDTO{
			ID:       c.ID(),
			Score:    c.Score(),
			Path:     string(c.Path()),
			Content:  c.Content(),
			Tags:     c.Tags(),
			Numerics: c.Numerics(),
		}
	}

	dropped := make([]droppedFilterDTO, len(r.Dropped))
	for i, d := range r.Dropped {
		dropped[i] = droppedFilterDTO{Field: d.Field, Reason: d.Reason}
	}

	timings := make(map[string]float64, len(r.Timings))
	for stage, d := range r.Timings {
		timings[stage] = float64(d) / float64(time.Millisecond)
	}

	return queryResponse{
		Answer:         r.Answer,
		Classification: string(r.Label),
		FilterState:    string(r.FilterState),
		FiltersApplied: filtersToDTO(r.Filters),
		DroppedFilters: dropped,
		Evidence:       evidence,
		Warnings:       r.Warnings,
		TimingsMS:      timings,
	}
}

// filtersToDTO renders the predicate set as plain JSON so operator
// tooling can display what actually constrained retrieval.
func filtersToDTO(s filter.Set) map[string]any {
	out := make(map[string]any, s.Len())
	for _, field := range s.Fields() {
		p, _ := s.Get(field)
		switch {
		case p.IsEquals():
			out[field] = p.Equals()
		case p.IsIn():
			out[field] = p.In()
		case p.IsBool():
			out[field] = *p.Bool()
		case p.IsRange():
			rng := make(map[string]float64, 2)
			r := p.Range()
			if r.GT() != nil {
				rng["gt"] = *r.GT()
			}
			if r.GTE() != nil {
				rng["gte"] = *r.GTE()
			}
			if r.LT() != nil {
				rng["lt"] = *r.LT()
			}
			if r.LTE() != nil {
				rng["lte"] = *r.LTE()
			}
			out[field] = rng
		}
	}
	return out
}
