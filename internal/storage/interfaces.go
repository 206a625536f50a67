package storage

import (
	"context"

	"policy-impact-lab/internal/domain"
)

// VectorStore provides access to scenario_vectors storage.
type VectorStore interface {
	// Insert adds a new vector. Returns ErrDuplicateKey if
	// (dataset, scenario, variable, aggregation) exists.
	Insert(ctx context.Context, v *domain.ResultVector) error

	// InsertBulk adds multiple vectors atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, vectors []*domain.ResultVector) error

	// Get retrieves one vector. Returns ErrNotFound if not exists.
	Get(ctx context.Context, dataset string, scenario domain.Scenario, variable string, aggregation domain.Aggregation) (*domain.ResultVector, error)

	// ListVariables returns the distinct variable names stored for a
	// dataset and scenario, sorted ASC.
	ListVariables(ctx context.Context, dataset string, scenario domain.Scenario) ([]string, error)
}

// ChartRowStore provides access to chart_rows storage.
type ChartRowStore interface {
	// InsertBulk adds chart rows. Returns ErrDuplicateKey if any
	// (report_id, chart, series, seq) exists.
	InsertBulk(ctx context.Context, rows []*domain.ChartRow) error

	// GetByReport retrieves all rows of a report, ordered by chart, series, seq ASC.
	GetByReport(ctx context.Context, reportID string) ([]*domain.ChartRow, error)

	// ListReports returns the distinct report IDs, sorted ASC.
	ListReports(ctx context.Context) ([]string, error)
}
