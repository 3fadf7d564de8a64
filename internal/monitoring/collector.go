// Package monitoring watches the analysis queue and raises webhook
// alerts when the failure rate climbs or the backlog grows past the
// configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/store"
)

// MetricsSnapshot holds a point-in-time view of queue health.
type MetricsSnapshot struct {
	// Job counts within the lookback window.
	JobsQueued     int     `json:"jobs_queued"`
	JobsProcessing int     `json:"jobs_processing"`
	JobsSucceeded  int     `json:"jobs_succeeded"`
	JobsFailed     int     `json:"jobs_failed"`
	FailureRate    float64 `json:"failure_rate"`

	// Totals across the whole store.
	Filings  int `json:"filings"`
	Analyses int `json:"analyses"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window. A zero or
// negative lookback counts all jobs ever created.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	var since time.Time
	if lookbackHours > 0 {
		since = time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	}

	stats, err := c.store.JobStats(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: job stats")
	}

	return &MetricsSnapshot{
		JobsQueued:     stats.Queued,
		JobsProcessing: stats.Processing,
		JobsSucceeded:  stats.Succeeded,
		JobsFailed:     stats.Failed,
		FailureRate:    stats.FailureRate(),
		Filings:        stats.Filings,
		Analyses:       stats.Analyses,
		LookbackHours:  lookbackHours,
		CollectedAt:    time.Now().UTC(),
	}, nil
}
