package model

import "time"

// TransactionType classifies an intercompany transaction record.
type TransactionType string

const (
	TransactionLoan          TransactionType = "loan"
	TransactionManagementFee TransactionType = "management_fee"
	TransactionServiceFee    TransactionType = "service_fee"
	TransactionRoyalty       TransactionType = "royalty"
	TransactionGuarantee     TransactionType = "guarantee"
	TransactionCashPool      TransactionType = "cash_pool"
	TransactionOther         TransactionType = "other"
)

// ServiceTypes lists the transaction types scored by the services dimension.
func ServiceTypes() []TransactionType {
	return []TransactionType{TransactionManagementFee, TransactionServiceFee, TransactionRoyalty}
}

// Transaction is one intercompany transaction record supplied to the risk
// scorer alongside the validated financials.
type Transaction struct {
	Type                TransactionType `json:"type"`
	Description         string          `json:"description,omitempty"`
	Amount              float64         `json:"amount"`
	Currency            string          `json:"currency,omitempty"`
	CounterpartyName    string          `json:"counterparty_name,omitempty"`
	CounterpartyCountry string          `json:"counterparty_country,omitempty"`
	CrossBorder         bool            `json:"cross_border"`
}

// GroupProfile carries group/parent metadata for documentation scoring.
type GroupProfile struct {
	HasGroup      bool   `json:"has_group"`
	ForeignParent bool   `json:"foreign_parent"`
	ParentCountry string `json:"parent_country,omitempty"`
	ParentName    string `json:"parent_name,omitempty"`
}

// FinancialFacts is the validated, risk-relevant slice of an extraction run.
// Pointer fields distinguish "unknown" from zero, same as ExtractedValue.
type FinancialFacts struct {
	ICLoansProvided          float64  `json:"ic_loans_provided"`
	ICLoansReceived          float64  `json:"ic_loans_received"`
	AffiliateInterestIncome  float64  `json:"affiliate_interest_income"`
	AffiliateInterestExpense float64  `json:"affiliate_interest_expense"`
	TotalAssets              *float64 `json:"total_assets,omitempty"`
	TotalEquity              *float64 `json:"total_equity,omitempty"`
	TotalDebt                *float64 `json:"total_debt,omitempty"`
	HasRateAnomaly           bool     `json:"has_rate_anomaly"`
}

// RiskIndicators are the boolean signals derived while scoring.
type RiskIndicators struct {
	HasICFinancing      bool `json:"has_ic_financing"`
	HasICServices       bool `json:"has_ic_services"`
	HasRoyalties        bool `json:"has_royalties"`
	HasCrossBorder      bool `json:"has_cross_border"`
	ThinCapitalisation  bool `json:"thin_capitalisation"`
	RateAnomaly         bool `json:"rate_anomaly"`
	LocalFileRequired   bool `json:"local_file_required"`
	MasterFileRequired  bool `json:"master_file_required"`
	HighICConcentration bool `json:"high_ic_concentration"`
}

// PriorityTier buckets companies for reviewer attention.
type PriorityTier string

const (
	TierA PriorityTier = "A"
	TierB PriorityTier = "B"
	TierC PriorityTier = "C"
)

// Assessment is the risk scorer's output for one company and fiscal year.
// Re-analysis supersedes the previous assessment; nothing deletes implicitly.
type Assessment struct {
	CompanyName        string         `json:"company_name"`
	RegistrationID     string         `json:"registration_id"`
	FiscalYear         int            `json:"fiscal_year"`
	Indicators         RiskIndicators `json:"indicators"`
	FinancingScore     int            `json:"financing_score"`
	ServicesScore      int            `json:"services_score"`
	DocumentationScore int            `json:"documentation_score"`
	MaterialityScore   int            `json:"materiality_score"`
	ComplexityScore    int            `json:"complexity_score"`
	TotalScore         int            `json:"total_score"`
	PriorityTier       PriorityTier   `json:"priority_tier"`
	Narrative          string         `json:"narrative,omitempty"`
	NarrativeSource    string         `json:"narrative_source,omitempty"` // "llm" or "template"
	ScoredAt           time.Time      `json:"scored_at"`
}
