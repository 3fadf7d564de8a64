package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/pipeline"
	"github.com/sells-group/tp-screener/internal/store"
)

type stubRunner struct {
	err  error
	runs int
}

func (s *stubRunner) Run(ctx context.Context, filing *model.Filing, company pipeline.CompanyInput) (*pipeline.Result, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.Result{
		Filing:     *filing,
		Validation: &model.ValidationResult{IsValid: true},
		Assessment: &model.Assessment{
			RegistrationID: filing.RegistrationID,
			TotalScore:     42,
			PriorityTier:   model.TierB,
		},
	}, nil
}

func newWorkerStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), config.StoreConfig{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func enqueueFiling(t *testing.T, s store.Store) (*model.Filing, *model.Job) {
	t.Helper()
	filing, err := s.CreateFiling(context.Background(), &model.Filing{
		CompanyName:    "Alpha Finance S.à r.l.",
		RegistrationID: "B123456",
		FiscalYear:     2024,
		Text:           "BILAN",
	})
	require.NoError(t, err)
	job, err := s.EnqueueJob(context.Background(), filing.ID)
	require.NoError(t, err)
	return filing, job
}

func waitForStatus(t *testing.T, s store.Store, jobID string, want model.JobStatus) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		j, err := s.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestWorkerProcessesJob(t *testing.T) {
	s := newWorkerStore(t)
	filing, job := enqueueFiling(t, s)

	runner := &stubRunner{}
	w := New(s, runner, config.WorkerConfig{PollIntervalSecs: 1, Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForStatus(t, s, job.ID, model.JobStatusSucceeded)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, runner.runs)
	rec, err := s.GetLatestAnalysis(context.Background(), filing.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 42, rec.Assessment.TotalScore)
}

func TestWorkerRecordsFailure(t *testing.T) {
	s := newWorkerStore(t)
	_, job := enqueueFiling(t, s)

	runner := &stubRunner{err: eris.New("ocr: pdftotext failed")}
	w := New(s, runner, config.WorkerConfig{PollIntervalSecs: 1, Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	got := waitForStatus(t, s, job.ID, model.JobStatusFailed)
	cancel()
	require.NoError(t, <-done)

	assert.Contains(t, got.Error, "pdftotext failed")
}

func TestWorkerStopsOnCancel(t *testing.T) {
	s := newWorkerStore(t)

	w := New(s, &stubRunner{}, config.WorkerConfig{PollIntervalSecs: 1, Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
