package model

import "time"

// JobStatus tracks a queued analysis job through its lifecycle.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Filing is one uploaded annual-accounts document awaiting or holding
// analysis results. The PDF itself lives in object storage; StoragePath
// points at it and Text holds the converted content once available.
type Filing struct {
	ID             string    `json:"id"`
	CompanyName    string    `json:"company_name"`
	RegistrationID string    `json:"registration_id"`
	FiscalYear     int       `json:"fiscal_year"`
	Currency       string    `json:"currency"`
	StoragePath    string    `json:"storage_path,omitempty"`
	Text           string    `json:"text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Job is one unit of work for the analysis worker.
type Job struct {
	ID        string    `json:"id"`
	FilingID  string    `json:"filing_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStats is an aggregate view of the job queue used by the health
// monitor and the status command.
type JobStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Filings    int `json:"filings"`
	Analyses   int `json:"analyses"`
}

// Finished returns the number of jobs that reached a terminal state.
func (s JobStats) Finished() int { return s.Succeeded + s.Failed }

// FailureRate returns the failed share of finished jobs, or 0 when
// nothing has finished yet.
func (s JobStats) FailureRate() float64 {
	if s.Finished() == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Finished())
}

// AnalysisRecord is the stored outcome of one pipeline run over a filing.
type AnalysisRecord struct {
	ID           string                   `json:"id"`
	FilingID     string                   `json:"filing_id"`
	BalanceSheet *BalanceSheetExtraction  `json:"balance_sheet,omitempty"`
	ProfitLoss   *ProfitAndLossExtraction `json:"profit_loss,omitempty"`
	Validation   *ValidationResult        `json:"validation,omitempty"`
	Assessment   *Assessment              `json:"assessment,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}
