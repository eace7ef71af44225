package health

import "context"

// DBPinger checks retrieval backend availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an LLM provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; the pipeline still answers
	// through its fallbacks.
	Degraded Status = "degraded"
	// Unhealthy indicates the retrieval backend is gone, which no
	// fallback can cover.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding ProviderChecker
	chat      ProviderChecker
}

// New creates a Service. embedding and chat can be nil.
func New(db DBPinger, embedding, chat ProviderChecker) *Service {
	return &Service{db: db, embedding: embedding, chat: chat}
}

// Check runs health checks against all components. Provider failures
// degrade; a database failure is fatal because every retrieval path
// depends on it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	for name, c := range map[string]ProviderChecker{"embedding": s.embedding, "chat": s.chat} {
		if c == nil {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[name] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
