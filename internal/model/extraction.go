package model

// Confidence grades how much trust an extracted value deserves.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ExtractedValue is a single financial fact bundled with its provenance.
// Amount and Source are pointers so "not found" stays distinct from zero.
// The extractor never produces an Amount without a Source; the validator
// treats that combination as a possible hallucination.
type ExtractedValue struct {
	Amount         *float64   `json:"amount"`
	Source         *string    `json:"source"`
	PageNumber     *int       `json:"page_number,omitempty"`
	LineReference  string     `json:"line_reference,omitempty"`
	NoteReference  string     `json:"note_reference,omitempty"`
	Confidence     Confidence `json:"confidence"`
	MatchedPattern string     `json:"matched_pattern,omitempty"`
	Warning        string     `json:"warning,omitempty"`
}

// Found reports whether the value was located in the source text.
func (v ExtractedValue) Found() bool {
	return v.Amount != nil
}

// AmountOrZero returns the amount, treating "not found" as 0 for arithmetic.
// Callers that must distinguish absence check Found() first.
func (v ExtractedValue) AmountOrZero() float64 {
	if v.Amount == nil {
		return 0
	}
	return *v.Amount
}

// BalanceSheetExtraction holds the balance-sheet fields the screener cares
// about. The set is fixed and exhaustively enumerated so consumers can rely
// on completeness at compile time.
type BalanceSheetExtraction struct {
	SharesInAffiliatedUndertakings ExtractedValue `json:"shares_in_affiliated_undertakings"`
	ICLoansProvidedLongTerm        ExtractedValue `json:"ic_loans_provided_long_term"`
	ICLoansProvidedShortTerm       ExtractedValue `json:"ic_loans_provided_short_term"`
	ICLoansReceivedLongTerm        ExtractedValue `json:"ic_loans_received_long_term"`
	ICLoansReceivedShortTerm       ExtractedValue `json:"ic_loans_received_short_term"`
	TotalAssets                    ExtractedValue `json:"total_assets"`
	TotalEquity                    ExtractedValue `json:"total_equity"`
}

// NamedValue pairs a field key with a pointer to its extracted value.
type NamedValue struct {
	Name  string
	Value *ExtractedValue
}

// Fields returns every balance-sheet field for uniform iteration by the
// cross-validator and quality-metric aggregation.
func (b *BalanceSheetExtraction) Fields() []NamedValue {
	return []NamedValue{
		{"shares_in_affiliated_undertakings", &b.SharesInAffiliatedUndertakings},
		{"ic_loans_provided_long_term", &b.ICLoansProvidedLongTerm},
		{"ic_loans_provided_short_term", &b.ICLoansProvidedShortTerm},
		{"ic_loans_received_long_term", &b.ICLoansReceivedLongTerm},
		{"ic_loans_received_short_term", &b.ICLoansReceivedShortTerm},
		{"total_assets", &b.TotalAssets},
		{"total_equity", &b.TotalEquity},
	}
}

// ICLoansProvidedTotal sums long- and short-term loans to affiliates.
func (b *BalanceSheetExtraction) ICLoansProvidedTotal() float64 {
	return b.ICLoansProvidedLongTerm.AmountOrZero() + b.ICLoansProvidedShortTerm.AmountOrZero()
}

// ICLoansReceivedTotal sums long- and short-term loans from affiliates.
func (b *BalanceSheetExtraction) ICLoansReceivedTotal() float64 {
	return b.ICLoansReceivedLongTerm.AmountOrZero() + b.ICLoansReceivedShortTerm.AmountOrZero()
}

// ProfitAndLossExtraction holds the P&L fields following the statutory line
// numbering of Luxembourg annual accounts. The Item10a/Item11a/Item14a fields
// are the affiliate-only a) sub-lines; their parent totals are kept alongside
// so the validator can detect a sub-line exceeding its parent.
type ProfitAndLossExtraction struct {
	OtherOperatingIncome          ExtractedValue `json:"other_operating_income"`
	DividendIncomeFromAffiliates  ExtractedValue `json:"dividend_income_from_affiliates"`
	Item10InterestTotal           ExtractedValue `json:"item_10_interest_total"`
	Item10aInterestFromAffiliates ExtractedValue `json:"item_10a_interest_from_affiliates"`
	Item11InterestTotal           ExtractedValue `json:"item_11_interest_total"`
	Item11aInterestFromAffiliates ExtractedValue `json:"item_11a_interest_from_affiliates"`
	InterestPayableTotal          ExtractedValue `json:"interest_payable_total"`
	InterestPayableToAffiliates   ExtractedValue `json:"interest_payable_to_affiliates"`
	NetTurnover                   ExtractedValue `json:"net_turnover"`
	NetProfitLoss                 ExtractedValue `json:"net_profit_loss"`
}

// Fields returns every P&L field for uniform iteration.
func (p *ProfitAndLossExtraction) Fields() []NamedValue {
	return []NamedValue{
		{"other_operating_income", &p.OtherOperatingIncome},
		{"dividend_income_from_affiliates", &p.DividendIncomeFromAffiliates},
		{"item_10_interest_total", &p.Item10InterestTotal},
		{"item_10a_interest_from_affiliates", &p.Item10aInterestFromAffiliates},
		{"item_11_interest_total", &p.Item11InterestTotal},
		{"item_11a_interest_from_affiliates", &p.Item11aInterestFromAffiliates},
		{"interest_payable_total", &p.InterestPayableTotal},
		{"interest_payable_to_affiliates", &p.InterestPayableToAffiliates},
		{"net_turnover", &p.NetTurnover},
		{"net_profit_loss", &p.NetProfitLoss},
	}
}

// AffiliateInterestIncome sums the affiliate-only interest receivable
// sub-lines (10a + 11a).
func (p *ProfitAndLossExtraction) AffiliateInterestIncome() float64 {
	return p.Item10aInterestFromAffiliates.AmountOrZero() + p.Item11aInterestFromAffiliates.AmountOrZero()
}

// SubLinePairs returns each affiliate sub-line with its parent total so the
// validator can check that a) amounts never exceed the line total.
func (p *ProfitAndLossExtraction) SubLinePairs() []SubLinePair {
	return []SubLinePair{
		{"item_10a_interest_from_affiliates", &p.Item10aInterestFromAffiliates, &p.Item10InterestTotal},
		{"item_11a_interest_from_affiliates", &p.Item11aInterestFromAffiliates, &p.Item11InterestTotal},
		{"interest_payable_to_affiliates", &p.InterestPayableToAffiliates, &p.InterestPayableTotal},
	}
}

// SubLinePair links an affiliate a) sub-line to its parent line total.
type SubLinePair struct {
	Name    string
	SubLine *ExtractedValue
	Parent  *ExtractedValue
}

// NoteReferences returns the distinct note identifiers cited by P&L fields,
// in field order. The note resolver uses this to know which notes to locate.
func (p *ProfitAndLossExtraction) NoteReferences() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, f := range p.Fields() {
		ref := f.Value.NoteReference
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}
