package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/db"
	"github.com/sells-group/tp-screener/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"insert_filing": `INSERT INTO filings (id, company_name, registration_id, fiscal_year, currency, storage_path, text_content, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_filing":    `SELECT id, company_name, registration_id, fiscal_year, currency, COALESCE(storage_path, ''), COALESCE(text_content, ''), created_at FROM filings WHERE id = $1`,
	"enqueue_job":   `INSERT INTO jobs (id, filing_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_job":    `UPDATE jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (assessment persistence, bulk import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_name    TEXT NOT NULL,
	registration_id TEXT NOT NULL,
	fiscal_year     INTEGER NOT NULL,
	currency        TEXT NOT NULL DEFAULT 'EUR',
	storage_path    TEXT,
	text_content    TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (registration_id, fiscal_year)
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filing_id  TEXT NOT NULL REFERENCES filings(id),
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filing_id     TEXT NOT NULL REFERENCES filings(id),
	balance_sheet JSONB,
	profit_loss   JSONB,
	validation    JSONB,
	assessment    JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assessments (
	registration_id     TEXT NOT NULL,
	company_name        TEXT NOT NULL,
	fiscal_year         INTEGER NOT NULL,
	indicators          JSONB,
	financing_score     INTEGER NOT NULL,
	services_score      INTEGER NOT NULL,
	documentation_score INTEGER NOT NULL,
	materiality_score   INTEGER NOT NULL,
	complexity_score    INTEGER NOT NULL,
	total_score         INTEGER NOT NULL,
	priority_tier       TEXT NOT NULL,
	narrative           TEXT,
	narrative_source    TEXT,
	config_hash         TEXT,
	scored_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (registration_id, fiscal_year)
);

CREATE INDEX IF NOT EXISTS idx_filings_registration ON filings(registration_id, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_filing_id ON analyses(filing_id);
CREATE INDEX IF NOT EXISTS idx_assessments_total_score ON assessments(total_score DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateFiling(ctx context.Context, f *model.Filing) (*model.Filing, error) {
	out := *f
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Currency == "" {
		out.Currency = "EUR"
	}
	out.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO filings (id, company_name, registration_id, fiscal_year, currency, storage_path, text_content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		out.ID, out.CompanyName, out.RegistrationID, out.FiscalYear, out.Currency, out.StoragePath, out.Text, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert filing")
	}
	return &out, nil
}

func (s *PostgresStore) GetFiling(ctx context.Context, filingID string) (*model.Filing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_name, registration_id, fiscal_year, currency,
		        COALESCE(storage_path, ''), COALESCE(text_content, ''), created_at
		 FROM filings WHERE id = $1`,
		filingID,
	)

	var f model.Filing
	err := row.Scan(&f.ID, &f.CompanyName, &f.RegistrationID, &f.FiscalYear,
		&f.Currency, &f.StoragePath, &f.Text, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("filing not found: %s", filingID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan filing")
	}
	return &f, nil
}

func (s *PostgresStore) ListFilings(ctx context.Context, filter FilingFilter) ([]model.Filing, error) {
	query := `SELECT id, company_name, registration_id, fiscal_year, currency,
	                 COALESCE(storage_path, ''), COALESCE(text_content, ''), created_at
	          FROM filings WHERE true`
	var args []any
	arg := 1

	if filter.RegistrationID != "" {
		query += fmt.Sprintf(" AND registration_id = $%d", arg)
		args = append(args, filter.RegistrationID)
		arg++
	}
	if filter.FiscalYear > 0 {
		query += fmt.Sprintf(" AND fiscal_year = $%d", arg)
		args = append(args, filter.FiscalYear)
		arg++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", arg)
	args = append(args, limit)
	arg++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list filings")
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		var f model.Filing
		err := rows.Scan(&f.ID, &f.CompanyName, &f.RegistrationID, &f.FiscalYear,
			&f.Currency, &f.StoragePath, &f.Text, &f.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan filing")
		}
		filings = append(filings, f)
	}
	return filings, eris.Wrap(rows.Err(), "postgres: list filings iterate")
}

func (s *PostgresStore) EnqueueJob(ctx context.Context, filingID string) (*model.Job, error) {
	j := model.Job{
		ID:        uuid.New().String(),
		FilingID:  filingID,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	j.UpdatedAt = j.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, filing_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		j.ID, j.FilingID, string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: enqueue job for filing %s", filingID)
	}
	return &j, nil
}

// ClaimJob takes the oldest queued job using FOR UPDATE SKIP LOCKED so
// concurrent workers never double-claim.
func (s *PostgresStore) ClaimJob(ctx context.Context) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $2
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, filing_id, status, COALESCE(error, ''), created_at, updated_at`,
		string(model.JobStatusProcessing), string(model.JobStatusQueued),
	)

	var j model.Job
	err := row.Scan(&j.ID, &j.FilingID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim job")
	}
	return &j, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string) error {
	return s.setJobStatus(ctx, jobID, model.JobStatusSucceeded, "")
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, jobErr string) error {
	return s.setJobStatus(ctx, jobID, model.JobStatusFailed, jobErr)
}

func (s *PostgresStore) setJobStatus(ctx context.Context, jobID string, status model.JobStatus, jobErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, updated_at = now() WHERE id = $3`,
		string(status), jobErr, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filing_id, status, COALESCE(error, ''), created_at, updated_at FROM jobs WHERE id = $1`,
		jobID,
	)

	var j model.Job
	err := row.Scan(&j.ID, &j.FilingID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan job")
	}
	return &j, nil
}

func (s *PostgresStore) JobStats(ctx context.Context, since time.Time) (*model.JobStats, error) {
	var stats model.JobStats

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE created_at >= $1 GROUP BY status`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: job stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job stats")
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
		return nil, eris.Wrap(err, "postgres: job stats rows")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM filings`).Scan(&stats.Filings); err != nil {
		return nil, eris.Wrap(err, "postgres: count filings")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&stats.Analyses); err != nil {
		return nil, eris.Wrap(err, "postgres: count analyses")
	}
	return &stats, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error) {
	out := *rec
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	bs, pl, val, assess, err := marshalAnalysis(&out)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, filing_id, balance_sheet, profit_loss, validation, assessment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.ID, out.FilingID, bs, pl, val, assess, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for filing %s", out.FilingID)
	}
	return &out, nil
}

func (s *PostgresStore) GetLatestAnalysis(ctx context.Context, filingID string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filing_id, balance_sheet, profit_loss, validation, assessment, created_at
		 FROM analyses WHERE filing_id = $1 ORDER BY created_at DESC LIMIT 1`,
		filingID,
	)

	rec, err := scanAnalysis(row)
	if err != nil && noRows(err) {
		return nil, nil
	}
	return rec, err
}

// ImportFilings bulk-upserts filing metadata, keyed on registration and
// fiscal year. Used by the registry import command.
func (s *PostgresStore) ImportFilings(ctx context.Context, filings []model.Filing) (int64, error) {
	rows := make([][]any, 0, len(filings))
	now := time.Now().UTC()
	for _, f := range filings {
		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		currency := f.Currency
		if currency == "" {
			currency = "EUR"
		}
		rows = append(rows, []any{id, f.CompanyName, f.RegistrationID, f.FiscalYear, currency, f.StoragePath, f.Text, now})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "filings",
		Columns:      []string{"id", "company_name", "registration_id", "fiscal_year", "currency", "storage_path", "text_content", "created_at"},
		ConflictKeys: []string{"registration_id", "fiscal_year"},
		UpdateCols:   []string{"company_name", "currency", "storage_path", "text_content"},
	}, rows)
}
