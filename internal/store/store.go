// Package store persists filings, analysis jobs and pipeline results.
// SQLite serves single-machine runs; Postgres serves the shared worker
// deployment, where job claiming relies on row locking.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
)

// FilingFilter specifies criteria for listing filings.
type FilingFilter struct {
	RegistrationID string `json:"registration_id,omitempty"`
	FiscalYear     int    `json:"fiscal_year,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the screening pipeline.
type Store interface {
	// Filings
	CreateFiling(ctx context.Context, f *model.Filing) (*model.Filing, error)
	GetFiling(ctx context.Context, filingID string) (*model.Filing, error)
	ListFilings(ctx context.Context, filter FilingFilter) ([]model.Filing, error)

	// Jobs
	EnqueueJob(ctx context.Context, filingID string) (*model.Job, error)
	// ClaimJob atomically takes one queued job and marks it processing.
	// Returns nil, nil when the queue is empty.
	ClaimJob(ctx context.Context) (*model.Job, error)
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID string, jobErr string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	// JobStats aggregates queue counts for jobs created after since;
	// a zero since counts everything.
	JobStats(ctx context.Context, since time.Time) (*model.JobStats, error)

	// Analyses
	SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error)
	GetLatestAnalysis(ctx context.Context, filingID string) (*model.AnalysisRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
