package chi

import (
	"context"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/travel"
	"github.com/jetkart/jetkart/internal/usecase/ask"
	healthuc "github.com/jetkart/jetkart/internal/usecase/health"
)

// CollectionAdmin provisions and destroys collections.
type CollectionAdmin interface {
	Recreate(ctx context.Context, col domain.Collection) (domain.ProvisionReport, error)
	Delete(ctx context.Context, name string) error
}

// Ingester loads corpus entities into a collection.
type Ingester interface {
	IngestFlights(ctx context.Context, collection string, flights []travel.Flight) (int, error)
	IngestDocument(ctx context.Context, collection, documentType, content string, maxChunkSize int) (int, error)
}

// Asker answers one query through the retrieval pipeline.
type Asker interface {
	Ask(ctx context.Context, collection, query string, topK int) (ask.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
