package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tp-screener/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresGetFiling(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM filings WHERE id = \$1`).
		WithArgs("f-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_name", "registration_id", "fiscal_year", "currency",
			"storage_path", "text_content", "created_at",
		}).AddRow("f-1", "Alpha Finance S.à r.l.", "B123456", 2024, "EUR", "", "BILAN", now))

	f, err := s.GetFiling(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "B123456", f.RegistrationID)
	assert.Equal(t, 2024, f.FiscalYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetFilingNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM filings WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetFiling(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filing not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFilingsBuildsFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND registration_id = \$1 AND fiscal_year = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("B123456", 2024, 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_name", "registration_id", "fiscal_year", "currency",
			"storage_path", "text_content", "created_at",
		}))

	filings, err := s.ListFilings(context.Background(), FilingFilter{
		RegistrationID: "B123456",
		FiscalYear:     2024,
		Limit:          50,
	})
	require.NoError(t, err)
	assert.Empty(t, filings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE jobs SET status = \$1`).
		WithArgs(string(model.JobStatusProcessing), string(model.JobStatusQueued)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "filing_id", "status", "error", "created_at", "updated_at",
		}).AddRow("j-1", "f-1", string(model.JobStatusProcessing), "", now, now))

	j, err := s.ClaimJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "j-1", j.ID)
	assert.Equal(t, model.JobStatusProcessing, j.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimJobEmptyQueue(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE jobs SET status = \$1`).
		WithArgs(string(model.JobStatusProcessing), string(model.JobStatusQueued)).
		WillReturnError(pgx.ErrNoRows)

	j, err := s.ClaimJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, j)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1, error = \$2`).
		WithArgs(string(model.JobStatusSucceeded), "", "j-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteJob(context.Background(), "j-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailJobNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1, error = \$2`).
		WithArgs(string(model.JobStatusFailed), "ocr: pdftotext failed", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailJob(context.Background(), "missing", "ocr: pdftotext failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLatestAnalysisNone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM analyses WHERE filing_id = \$1`).
		WithArgs("f-1").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetLatestAnalysis(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnqueueJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(pgxmock.AnyArg(), "f-1", string(model.JobStatusQueued), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	j, err := s.EnqueueJob(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, j.Status)
	assert.NotEmpty(t, j.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
