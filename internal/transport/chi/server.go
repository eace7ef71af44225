package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/logger"
	"github.com/jetkart/jetkart/internal/metrics"
	healthuc "github.com/jetkart/jetkart/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the retrieval pipeline.
type Server struct {
	collections   CollectionAdmin
	ingester      Ingester
	asker         Asker
	health        HealthChecker
	chunkMaxChars int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections CollectionAdmin, ingester Ingester, asker Asker,
	health HealthChecker, chunkMaxChars int, log *zap.Logger,
) *Server {
	s := &Server{
		collections:   collections,
		ingester:      ingester,
		asker:         asker,
		health:        health,
		chunkMaxChars: chunkMaxChars,
		logger:        log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "collection_not_found"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrInvalidVocabulary, http.StatusBadRequest, "invalid_vocabulary"),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, "retrieval_unavailable"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrChatProviderError, http.StatusBadGateway, "chat_provider_error"),
	}
	return s
}

// Router builds the chi router with logging and metrics middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(s.loggerMiddleware())

	r.Post("/collections", s.createCollection)
	r.Delete("/collections/{collection}", s.deleteCollection)
	r.Post("/collections/{collection}/ingest", s.ingest)
	r.Post("/collections/{collection}/query", s.query)
	r.Get("/health", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// loggerMiddleware threads the server logger through request contexts.
func (s *Server) loggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.ContextWithLogger(r.Context(), s.logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// createCollection handles POST /collections: destructive
// create-or-recreate with a per-field provision report.
func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	col, err := domain.NewCollection(req.Name, req.VectorDim)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	report, err := s.collections.Recreate(r.Context(), col)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, provisionToDTO(report))
}

// deleteCollection handles DELETE /collections/{collection}.
func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if err := s.collections.Delete(r.Context(), name); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ingest handles POST /collections/{collection}/ingest: flight records
// and policy documents in one request.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if len(req.Flights) == 0 && len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "nothing to ingest")
		return
	}

	var resp ingestResponse

	if len(req.Flights) > 0 {
		n, err := s.ingester.IngestFlights(r.Context(), name, req.Flights)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.FlightsIngested = n
	}

	for _, doc := range req.Documents {
		n, err := s.ingester.IngestDocument(r.Context(), name, doc.DocumentType, doc.Content, s.chunkMaxChars)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.ChunksIngested += n
	}

	writeJSON(w, http.StatusOK, resp)
}

// query handles POST /collections/{collection}/query.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	result, err := s.asker.Ask(r.Context(), name, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToDTO(result))
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrRetrievalUnavailable) {
		return retrievalMessage(err)
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidVocabulary,
		domain.ErrEmbeddingProviderError,
		domain.ErrChatProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// retrievalMessage names the lost path(s) via their sentinels. The
// provider causes stay in the server log only.
func retrievalMessage(err error) string {
	var lost []string
	if errors.Is(err, domain.ErrFlightPathLost) {
		lost = append(lost, domain.ErrFlightPathLost.Error())
	}
	if errors.Is(err, domain.ErrInfoPathLost) {
		lost = append(lost, domain.ErrInfoPathLost.Error())
	}
	msg := domain.ErrRetrievalUnavailable.Error()
	if len(lost) > 0 {
		msg += ": " + strings.Join(lost, ", ")
	}
	return msg
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
