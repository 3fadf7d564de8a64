package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tp-screener/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id              TEXT PRIMARY KEY,
	company_name    TEXT NOT NULL,
	registration_id TEXT NOT NULL,
	fiscal_year     INTEGER NOT NULL,
	currency        TEXT NOT NULL DEFAULT 'EUR',
	storage_path    TEXT,
	text_content    TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	filing_id  TEXT NOT NULL REFERENCES filings(id),
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	filing_id     TEXT NOT NULL REFERENCES filings(id),
	balance_sheet TEXT,
	profit_loss   TEXT,
	validation    TEXT,
	assessment    TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_filings_registration ON filings(registration_id, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_analyses_filing_id ON analyses(filing_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFiling(ctx context.Context, f *model.Filing) (*model.Filing, error) {
	out := *f
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Currency == "" {
		out.Currency = "EUR"
	}
	out.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO filings (id, company_name, registration_id, fiscal_year, currency, storage_path, text_content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.CompanyName, out.RegistrationID, out.FiscalYear, out.Currency, out.StoragePath, out.Text, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert filing")
	}
	return &out, nil
}

func (s *SQLiteStore) GetFiling(ctx context.Context, filingID string) (*model.Filing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_name, registration_id, fiscal_year, currency,
		        COALESCE(storage_path, ''), COALESCE(text_content, ''), created_at
		 FROM filings WHERE id = ?`,
		filingID,
	)

	var f model.Filing
	err := row.Scan(&f.ID, &f.CompanyName, &f.RegistrationID, &f.FiscalYear,
		&f.Currency, &f.StoragePath, &f.Text, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("filing not found: %s", filingID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan filing")
	}
	return &f, nil
}

func (s *SQLiteStore) ListFilings(ctx context.Context, filter FilingFilter) ([]model.Filing, error) {
	query := `SELECT id, company_name, registration_id, fiscal_year, currency,
	                 COALESCE(storage_path, ''), COALESCE(text_content, ''), created_at
	          FROM filings WHERE 1=1`
	var args []any

	if filter.RegistrationID != "" {
		query += ` AND registration_id = ?`
		args = append(args, filter.RegistrationID)
	}
	if filter.FiscalYear > 0 {
		query += ` AND fiscal_year = ?`
		args = append(args, filter.FiscalYear)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list filings")
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		var f model.Filing
		err := rows.Scan(&f.ID, &f.CompanyName, &f.RegistrationID, &f.FiscalYear,
			&f.Currency, &f.StoragePath, &f.Text, &f.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing")
		}
		filings = append(filings, f)
	}
	return filings, eris.Wrap(rows.Err(), "sqlite: list filings iterate")
}

func (s *SQLiteStore) EnqueueJob(ctx context.Context, filingID string) (*model.Job, error) {
	j := model.Job{
		ID:        uuid.New().String(),
		FilingID:  filingID,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	j.UpdatedAt = j.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, filing_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.FilingID, string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: enqueue job for filing %s", filingID)
	}
	return &j, nil
}

// ClaimJob takes the oldest queued job. WAL mode serializes the writers, so
// the single UPDATE ... RETURNING is atomic without explicit locking.
func (s *SQLiteStore) ClaimJob(ctx context.Context) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1)
		RETURNING id, filing_id, status, COALESCE(error, ''), created_at, updated_at`,
		string(model.JobStatusProcessing), time.Now().UTC(), string(model.JobStatusQueued),
	)

	var j model.Job
	err := row.Scan(&j.ID, &j.FilingID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim job")
	}
	return &j, nil
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string) error {
	return s.setJobStatus(ctx, jobID, model.JobStatusSucceeded, "")
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, jobErr string) error {
	return s.setJobStatus(ctx, jobID, model.JobStatusFailed, jobErr)
}

func (s *SQLiteStore) setJobStatus(ctx context.Context, jobID string, status model.JobStatus, jobErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), jobErr, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filing_id, status, COALESCE(error, ''), created_at, updated_at FROM jobs WHERE id = ?`,
		jobID,
	)

	var j model.Job
	err := row.Scan(&j.ID, &j.FilingID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}
	return &j, nil
}

func (s *SQLiteStore) JobStats(ctx context.Context, since time.Time) (*model.JobStats, error) {
	var stats model.JobStats

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE created_at >= ? GROUP BY status`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: job stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job stats")
		}
		switch model.JobStatus(status) {
		case model.JobStatusQueued:
			stats.Queued = count
		case model.JobStatusProcessing:
			stats.Processing = count
		case model.JobStatusSucceeded:
			stats.Succeeded = count
		case model.JobStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: job stats rows")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM filings`).Scan(&stats.Filings); err != nil {
		return nil, eris.Wrap(err, "sqlite: count filings")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&stats.Analyses); err != nil {
		return nil, eris.Wrap(err, "sqlite: count analyses")
	}
	return &stats, nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error) {
	out := *rec
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	bs, pl, val, assess, err := marshalAnalysis(&out)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, filing_id, balance_sheet, profit_loss, validation, assessment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.FilingID, bs, pl, val, assess, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for filing %s", out.FilingID)
	}
	return &out, nil
}

func (s *SQLiteStore) GetLatestAnalysis(ctx context.Context, filingID string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filing_id, balance_sheet, profit_loss, validation, assessment, created_at
		 FROM analyses WHERE filing_id = ? ORDER BY created_at DESC LIMIT 1`,
		filingID,
	)

	rec, err := scanAnalysis(row)
	if err != nil && noRows(err) {
		return nil, nil
	}
	return rec, err
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
