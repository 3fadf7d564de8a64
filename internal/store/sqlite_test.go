package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testFiling() *model.Filing {
	return &model.Filing{
		CompanyName:    "Alpha Finance S.à r.l.",
		RegistrationID: "B123456",
		FiscalYear:     2024,
		Text:           "BILAN\nCréances sur des entreprises liées 517.400.000",
	}
}

func TestSQLiteFilingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "EUR", created.Currency, "currency defaults to EUR")

	got, err := s.GetFiling(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.CompanyName, got.CompanyName)
	assert.Equal(t, created.Text, got.Text)
	assert.Equal(t, 2024, got.FiscalYear)
}

func TestSQLiteGetFilingNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetFiling(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filing not found")
}

func TestSQLiteListFilings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f1 := testFiling()
	_, err := s.CreateFiling(ctx, f1)
	require.NoError(t, err)

	f2 := testFiling()
	f2.RegistrationID = "B654321"
	f2.FiscalYear = 2023
	_, err = s.CreateFiling(ctx, f2)
	require.NoError(t, err)

	all, err := s.ListFilings(ctx, FilingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byReg, err := s.ListFilings(ctx, FilingFilter{RegistrationID: "B123456"})
	require.NoError(t, err)
	require.Len(t, byReg, 1)
	assert.Equal(t, "B123456", byReg[0].RegistrationID)

	byYear, err := s.ListFilings(ctx, FilingFilter{FiscalYear: 2023})
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, 2023, byYear[0].FiscalYear)
}

func TestSQLiteJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filing, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)

	job, err := s.EnqueueJob(ctx, filing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)

	claimed, err := s.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, model.JobStatusProcessing, claimed.Status)

	// The queue is now empty.
	empty, err := s.ClaimJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	require.NoError(t, s.CompleteJob(ctx, job.ID))
	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, got.Status)
}

func TestSQLiteFailJobRecordsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filing, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)
	job, err := s.EnqueueJob(ctx, filing.ID)
	require.NoError(t, err)

	require.NoError(t, s.FailJob(ctx, job.ID, "ocr: pdftotext failed"))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "ocr: pdftotext failed", got.Error)
}

func TestSQLiteJobClaimOrderIsFIFO(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filing, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)

	first, err := s.EnqueueJob(ctx, filing.ID)
	require.NoError(t, err)
	_, err = s.EnqueueJob(ctx, filing.ID)
	require.NoError(t, err)

	claimed, err := s.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
}

func TestSQLiteCompleteUnknownJob(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
}

func TestSQLiteAnalysisRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filing, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)

	amount := 517400000.0
	source := "Créances sur des entreprises liées 517.400.000"
	rec := &model.AnalysisRecord{
		FilingID: filing.ID,
		BalanceSheet: &model.BalanceSheetExtraction{
			ICLoansReceivedLongTerm: model.ExtractedValue{
				Amount:     &amount,
				Source:     &source,
				Confidence: model.ConfidenceHigh,
			},
		},
		Validation: &model.ValidationResult{IsValid: true},
		Assessment: &model.Assessment{
			CompanyName:  "Alpha Finance S.à r.l.",
			TotalScore:   81,
			PriorityTier: model.TierA,
		},
	}

	saved, err := s.SaveAnalysis(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	got, err := s.GetLatestAnalysis(ctx, filing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.BalanceSheet)
	require.NotNil(t, got.BalanceSheet.ICLoansReceivedLongTerm.Amount)
	assert.InDelta(t, 517400000, *got.BalanceSheet.ICLoansReceivedLongTerm.Amount, 0.01)
	assert.Nil(t, got.ProfitLoss, "absent sections stay nil")
	require.NotNil(t, got.Assessment)
	assert.Equal(t, model.TierA, got.Assessment.PriorityTier)
}

func TestSQLiteLatestAnalysisWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filing, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)

	_, err = s.SaveAnalysis(ctx, &model.AnalysisRecord{
		FilingID:   filing.ID,
		Assessment: &model.Assessment{TotalScore: 40},
	})
	require.NoError(t, err)
	_, err = s.SaveAnalysis(ctx, &model.AnalysisRecord{
		FilingID:   filing.ID,
		Assessment: &model.Assessment{TotalScore: 81},
	})
	require.NoError(t, err)

	got, err := s.GetLatestAnalysis(ctx, filing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 81, got.Assessment.TotalScore)
}

func TestSQLiteNoAnalysisReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetLatestAnalysis(context.Background(), "unknown-filing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)
}

func TestSQLiteJobStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f1, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)
	f2, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)

	// One job completed, one failed, one left queued.
	j1, err := s.EnqueueJob(ctx, f1.ID)
	require.NoError(t, err)
	claimed, err := s.ClaimJob(ctx)
	require.NoError(t, err)
	require.Equal(t, j1.ID, claimed.ID)
	require.NoError(t, s.CompleteJob(ctx, claimed.ID))

	_, err = s.EnqueueJob(ctx, f2.ID)
	require.NoError(t, err)
	claimed, err = s.ClaimJob(ctx)
	require.NoError(t, err)
	require.NoError(t, s.FailJob(ctx, claimed.ID, "boom"))

	_, err = s.EnqueueJob(ctx, f1.ID)
	require.NoError(t, err)

	stats, err := s.JobStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Queued)
	assert.Equal(t, 0, stats.Processing)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Filings)
	assert.Equal(t, 0, stats.Analyses)
	assert.Equal(t, 2, stats.Finished())
	assert.InDelta(t, 0.5, stats.FailureRate(), 1e-9)
}

func TestSQLiteJobStatsLookback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := s.CreateFiling(ctx, testFiling())
	require.NoError(t, err)
	_, err = s.EnqueueJob(ctx, f.ID)
	require.NoError(t, err)

	// A cutoff in the future excludes the job just created.
	stats, err := s.JobStats(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.Queued)
	// Filing totals ignore the window.
	assert.Equal(t, 1, stats.Filings)
}
