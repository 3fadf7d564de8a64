// Package worker drains the analysis job queue. Several workers may run
// against the same database; the store's claim semantics guarantee each job
// is processed once.
package worker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/pipeline"
	"github.com/sells-group/tp-screener/internal/store"
)

// Runner abstracts the screening pipeline for the worker.
type Runner interface {
	Run(ctx context.Context, filing *model.Filing, company pipeline.CompanyInput) (*pipeline.Result, error)
}

// Worker polls for queued jobs and runs the pipeline on each.
type Worker struct {
	store store.Store
	pipe  Runner
	cfg   config.WorkerConfig
}

// New creates a Worker.
func New(st store.Store, pipe Runner, cfg config.WorkerConfig) *Worker {
	return &Worker{store: st, pipe: pipe, cfg: cfg}
}

// Run starts the configured number of polling loops and blocks until the
// context is cancelled. Job failures are recorded on the job, never
// propagated; only a store-level claim error stops the worker.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	poll := time.Duration(w.cfg.PollIntervalSecs) * time.Second
	if poll <= 0 {
		poll = 3 * time.Second
	}

	zap.L().Info("worker: starting",
		zap.Int("concurrency", concurrency),
		zap.Duration("poll_interval", poll),
	)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return w.loop(gCtx, poll)
		})
	}
	err := g.Wait()
	if eris.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, poll time.Duration) error {
	for {
		job, err := w.store.ClaimJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return eris.Wrap(err, "worker: claim job")
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(poll):
			}
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *model.Job) {
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("filing_id", job.FilingID))
	log.Info("worker: processing job")

	filing, err := w.store.GetFiling(ctx, job.FilingID)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	result, err := w.pipe.Run(ctx, filing, pipeline.CompanyInput{
		Context: model.CompanyValidationContext{
			Name:           filing.CompanyName,
			RegistrationID: filing.RegistrationID,
			Currency:       filing.Currency,
		},
	})
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	rec := &model.AnalysisRecord{
		FilingID:     filing.ID,
		BalanceSheet: result.BalanceSheet,
		ProfitLoss:   result.ProfitLoss,
		Validation:   result.Validation,
		Assessment:   result.Assessment,
	}
	if _, err := w.store.SaveAnalysis(ctx, rec); err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		log.Warn("worker: failed to mark job complete", zap.Error(err))
		return
	}
	log.Info("worker: job complete",
		zap.Int("total_score", result.Assessment.TotalScore),
		zap.String("tier", string(result.Assessment.PriorityTier)),
	)
}

func (w *Worker) fail(ctx context.Context, job *model.Job, jobErr error) {
	zap.L().Error("worker: job failed",
		zap.String("job_id", job.ID),
		zap.Error(jobErr),
	)
	if err := w.store.FailJob(ctx, job.ID, jobErr.Error()); err != nil {
		zap.L().Warn("worker: failed to record job failure",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}
