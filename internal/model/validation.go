package model

// Severity grades validation findings.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// FlagType identifies a transfer-pricing opportunity flag.
type FlagType string

const (
	FlagZeroSpread      FlagType = "ZERO_SPREAD"
	FlagThinCap         FlagType = "THIN_CAPITALISATION"
	FlagUnverifiedIC    FlagType = "UNVERIFIED_IC"
	FlagOrphanInterest  FlagType = "ORPHAN_INTEREST"
	FlagImplausibleRate FlagType = "IMPLAUSIBLE_RATE"
)

// FlagPriority ranks opportunity flags for reviewer triage.
type FlagPriority string

const (
	PriorityHigh   FlagPriority = "HIGH"
	PriorityMedium FlagPriority = "MEDIUM"
	PriorityLow    FlagPriority = "LOW"
)

// CompanyValidationContext is caller-supplied reference data used for
// magnitude sanity checks. Read-only within a validation run.
type CompanyValidationContext struct {
	Name           string   `json:"name"`
	RegistrationID string   `json:"registration_id"`
	TotalAssets    *float64 `json:"total_assets,omitempty"`
	TotalEquity    *float64 `json:"total_equity,omitempty"`
	Currency       string   `json:"currency"`
}

// ValidationError is a blocking finding. PossibleHallucination marks
// provenance violations: a number the pipeline cannot trace to the source
// text must not be trusted.
type ValidationError struct {
	Field                 string   `json:"field"`
	Severity              Severity `json:"severity"`
	Issue                 string   `json:"issue"`
	PossibleHallucination bool     `json:"possible_hallucination"`
}

// ValidationWarning is a non-blocking finding surfaced for manual review.
type ValidationWarning struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Issue    string   `json:"issue"`
	Details  string   `json:"details,omitempty"`
}

// OpportunityFlag marks a transfer-pricing signal worth pursuing.
type OpportunityFlag struct {
	Type           FlagType     `json:"type"`
	Priority       FlagPriority `json:"priority"`
	Description    string       `json:"description"`
	EstimatedValue float64      `json:"estimated_value,omitempty"`
	Reference      string       `json:"reference,omitempty"`
}

// QualityMetrics aggregates how trustworthy a validation run's inputs were.
type QualityMetrics struct {
	AllSourced        bool       `json:"all_sourced"`
	SourcedPercentage float64    `json:"sourced_percentage"`
	ValuesExtracted   int        `json:"values_extracted"`
	ValuesWithSources int        `json:"values_with_sources"`
	Confidence        Confidence `json:"confidence"`
	CrossValidated    bool       `json:"cross_validated"`
}

// ValidationResult is the full outcome of one cross-validation run. Built
// once from immutable inputs, never mutated afterwards.
type ValidationResult struct {
	IsValid        bool                `json:"is_valid"`
	Errors         []ValidationError   `json:"errors"`
	Warnings       []ValidationWarning `json:"warnings"`
	Flags          []OpportunityFlag   `json:"flags"`
	QualityMetrics QualityMetrics      `json:"quality_metrics"`
}

// CriticalErrors returns only the CRITICAL findings.
func (r *ValidationResult) CriticalErrors() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

// HasFlag reports whether a flag of the given type was emitted.
func (r *ValidationResult) HasFlag(t FlagType) bool {
	for _, f := range r.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}
