// Package validate reconciles extracted financial facts against each other
// and against caller-supplied company context. Checks are independent and
// their findings are unioned, so check order never changes the outcome.
// Missing data is never an error here; errors are reserved for provenance
// and magnitude violations that mean "do not trust this record".
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
)

// Validator runs the cross-validation checks with configured thresholds.
// Safe for concurrent use; it carries no per-run state.
type Validator struct {
	cfg config.ValidationConfig
}

// New creates a Validator.
func New(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// run accumulates findings for a single validation pass.
type run struct {
	errors   []model.ValidationError
	warnings []model.ValidationWarning
	flags    []model.OpportunityFlag

	valuesExtracted   int
	valuesWithSources int
	checksRun         int
	checksPassed      int
}

// Validate produces one ValidationResult from both extraction structures,
// the resolved notes and the company context. Inputs are read only.
func (v *Validator) Validate(
	bs *model.BalanceSheetExtraction,
	pl *model.ProfitAndLossExtraction,
	noteResults map[string]*model.NoteParsingResult,
	company model.CompanyValidationContext,
) *model.ValidationResult {
	r := &run{}

	v.checkSourceCompleteness(r, bs, pl)
	v.checkSubLineConsistency(r, pl)
	v.checkMagnitude(r, bs, company)
	v.checkZeroSpread(r, bs, pl)
	v.checkOrphanInterest(r, bs, pl)
	v.checkImpliedRates(r, bs, pl)
	v.checkNoteDependencies(r, pl, noteResults)

	res := &model.ValidationResult{
		Errors:   r.errors,
		Warnings: r.warnings,
		Flags:    r.flags,
	}
	res.QualityMetrics = v.qualityMetrics(r)
	res.IsValid = len(res.CriticalErrors()) == 0

	zap.L().Info("validate: run complete",
		zap.String("company", company.Name),
		zap.Bool("is_valid", res.IsValid),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("flags", len(res.Flags)),
		zap.String("confidence", string(res.QualityMetrics.Confidence)),
	)
	return res
}

// checkSourceCompleteness enforces the provenance contract: every non-nil
// amount must cite a source. A violation is the hallucination signature and
// is always CRITICAL.
func (v *Validator) checkSourceCompleteness(r *run, bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction) {
	fields := append(bs.Fields(), pl.Fields()...)
	for _, f := range fields {
		if f.Value.Amount == nil {
			continue
		}
		r.valuesExtracted++
		if f.Value.Source != nil && *f.Value.Source != "" {
			r.valuesWithSources++
			continue
		}
		r.errors = append(r.errors, model.ValidationError{
			Field:                 f.Name,
			Severity:              model.SeverityCritical,
			Issue:                 "amount present without a source citation",
			PossibleHallucination: true,
		})
	}
}

// checkSubLineConsistency flags affiliate a) sub-lines that exceed their
// parent line total. Surfaced, never silently reconciled.
func (v *Validator) checkSubLineConsistency(r *run, pl *model.ProfitAndLossExtraction) {
	for _, pair := range pl.SubLinePairs() {
		if pair.SubLine.Amount == nil || pair.Parent.Amount == nil {
			continue
		}
		r.checksRun++
		if *pair.SubLine.Amount <= *pair.Parent.Amount {
			r.checksPassed++
			continue
		}
		r.warnings = append(r.warnings, model.ValidationWarning{
			Field:    pair.Name,
			Severity: model.SeverityWarning,
			Issue:    "affiliate sub-line exceeds its parent line total",
			Details: fmt.Sprintf("sub-line %.2f > parent total %.2f; likely a mismatched extraction",
				*pair.SubLine.Amount, *pair.Parent.Amount),
		})
	}
}

// checkMagnitude compares every IC-loan balance against total assets. A loan
// beyond the configured multiple indicates a unit or pattern fault, not a
// real balance.
func (v *Validator) checkMagnitude(r *run, bs *model.BalanceSheetExtraction, company model.CompanyValidationContext) {
	totalAssets := company.TotalAssets
	if totalAssets == nil {
		totalAssets = bs.TotalAssets.Amount
	}
	if totalAssets == nil || *totalAssets <= 0 {
		return
	}
	bound := v.cfg.MaxLoanToAssetsMultiple * *totalAssets

	loanFields := []model.NamedValue{
		{Name: "ic_loans_provided_long_term", Value: &bs.ICLoansProvidedLongTerm},
		{Name: "ic_loans_provided_short_term", Value: &bs.ICLoansProvidedShortTerm},
		{Name: "ic_loans_received_long_term", Value: &bs.ICLoansReceivedLongTerm},
		{Name: "ic_loans_received_short_term", Value: &bs.ICLoansReceivedShortTerm},
	}
	for _, f := range loanFields {
		if f.Value.Amount == nil {
			continue
		}
		r.checksRun++
		if *f.Value.Amount <= bound {
			r.checksPassed++
			continue
		}
		r.errors = append(r.errors, model.ValidationError{
			Field:    f.Name,
			Severity: model.SeverityCritical,
			Issue: fmt.Sprintf("amount %.0f exceeds plausible bounds (%.1fx total assets %.0f)",
				*f.Value.Amount, v.cfg.MaxLoanToAssetsMultiple, *totalAssets),
		})
	}
}

// checkZeroSpread emits the highest-value TP signal: an intercompany loan
// with no matching affiliate interest flow, in either direction.
func (v *Validator) checkZeroSpread(r *run, bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction) {
	provided := bs.ICLoansProvidedTotal()
	if provided > 0 {
		r.checksRun++
		if pl.AffiliateInterestIncome() > 0 {
			r.checksPassed++
		} else {
			r.flags = append(r.flags, model.OpportunityFlag{
				Type:     model.FlagZeroSpread,
				Priority: model.PriorityHigh,
				Description: fmt.Sprintf(
					"IC loans provided of %.0f generate no affiliate interest income", provided),
				EstimatedValue: provided,
				Reference:      "ic_loans_provided",
			})
		}
	}

	received := bs.ICLoansReceivedTotal()
	if received > 0 {
		r.checksRun++
		if pl.InterestPayableToAffiliates.AmountOrZero() > 0 {
			r.checksPassed++
		} else {
			r.flags = append(r.flags, model.OpportunityFlag{
				Type:     model.FlagZeroSpread,
				Priority: model.PriorityHigh,
				Description: fmt.Sprintf(
					"IC loans received of %.0f carry no affiliate interest expense", received),
				EstimatedValue: received,
				Reference:      "ic_loans_received",
			})
		}
	}
}

// checkOrphanInterest warns when affiliate interest flows exist without a
// corresponding loan balance: an extraction gap or an off-balance-sheet
// arrangement needing manual review.
func (v *Validator) checkOrphanInterest(r *run, bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction) {
	if income := pl.AffiliateInterestIncome(); income > 0 && bs.ICLoansProvidedTotal() == 0 {
		r.warnings = append(r.warnings, model.ValidationWarning{
			Field:    "item_10a_interest_from_affiliates",
			Severity: model.SeverityWarning,
			Issue:    "affiliate interest income without corresponding loan balance",
			Details:  fmt.Sprintf("interest of %.0f with no IC loans provided on the balance sheet", income),
		})
	}
	if expense := pl.InterestPayableToAffiliates.AmountOrZero(); expense > 0 && bs.ICLoansReceivedTotal() == 0 {
		r.warnings = append(r.warnings, model.ValidationWarning{
			Field:    "interest_payable_to_affiliates",
			Severity: model.SeverityWarning,
			Issue:    "affiliate interest expense without corresponding loan balance",
			Details:  fmt.Sprintf("interest of %.0f with no IC loans received on the balance sheet", expense),
		})
	}
}

// checkImpliedRates bounds interest ÷ principal: rates far outside the
// plausible band usually mean a mismatched extraction, not real pricing.
func (v *Validator) checkImpliedRates(r *run, bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction) {
	v.checkRate(r, "ic_loans_provided", bs.ICLoansProvidedTotal(), pl.AffiliateInterestIncome())
	v.checkRate(r, "ic_loans_received", bs.ICLoansReceivedTotal(), pl.InterestPayableToAffiliates.AmountOrZero())
}

func (v *Validator) checkRate(r *run, field string, principal, interest float64) {
	if principal <= 0 || interest <= 0 {
		return
	}
	r.checksRun++
	rate := interest / principal
	if rate >= v.cfg.MinPlausibleRate && rate <= v.cfg.MaxPlausibleRate {
		r.checksPassed++
		return
	}
	r.warnings = append(r.warnings, model.ValidationWarning{
		Field:    field,
		Severity: model.SeverityWarning,
		Issue:    "implied interest rate outside plausible band",
		Details: fmt.Sprintf("implied annual rate %.2f%% outside [%.2f%%, %.2f%%]",
			rate*100, v.cfg.MinPlausibleRate*100, v.cfg.MaxPlausibleRate*100),
	})
	r.flags = append(r.flags, model.OpportunityFlag{
		Type:        model.FlagImplausibleRate,
		Priority:    model.PriorityMedium,
		Description: fmt.Sprintf("implied rate on %s is %.2f%%, outside the plausible band", field, rate*100),
		Reference:   field,
	})
}

// checkNoteDependencies warns for every P&L field whose cited note could not
// be verified as intercompany, whether inaccessible or lacking explicit
// vocabulary. The amount is retained; the warning tells the caller to treat
// it as low confidence instead of discarding it.
func (v *Validator) checkNoteDependencies(r *run, pl *model.ProfitAndLossExtraction, noteResults map[string]*model.NoteParsingResult) {
	for _, f := range pl.Fields() {
		ref := f.Value.NoteReference
		if ref == "" {
			continue
		}
		r.checksRun++
		note, ok := noteResults[ref]
		switch {
		case !ok || note == nil || !note.NoteAccessible:
			r.warnings = append(r.warnings, model.ValidationWarning{
				Field:    f.Name,
				Severity: model.SeverityWarning,
				Issue:    fmt.Sprintf("%s is unverified: referenced note not accessible", ref),
				Details:  "value retained but downgraded to low confidence",
			})
		case !note.HasICBreakdown():
			r.warnings = append(r.warnings, model.ValidationWarning{
				Field:    f.Name,
				Severity: model.SeverityWarning,
				Issue:    fmt.Sprintf("%s is unverified: note content lacks explicit intercompany vocabulary", ref),
				Details:  "value retained but downgraded to medium confidence",
			})
		default:
			r.checksPassed++
		}
	}
}

// qualityMetrics aggregates the run counters into the result's quality block.
func (v *Validator) qualityMetrics(r *run) model.QualityMetrics {
	m := model.QualityMetrics{
		ValuesExtracted:   r.valuesExtracted,
		ValuesWithSources: r.valuesWithSources,
		AllSourced:        r.valuesExtracted > 0 && r.valuesWithSources == r.valuesExtracted,
		CrossValidated:    r.checksRun > 0,
	}
	if r.valuesExtracted > 0 {
		m.SourcedPercentage = float64(r.valuesWithSources) / float64(r.valuesExtracted)
	}
	m.Confidence = v.overallConfidence(r, m)
	return m
}

// overallConfidence: HIGH only with full sourcing, no CRITICAL findings, at
// least one passed cross-check and no high-priority flags; MEDIUM when the
// sourced share clears the configured threshold; LOW otherwise.
func (v *Validator) overallConfidence(r *run, m model.QualityMetrics) model.Confidence {
	for _, e := range r.errors {
		if e.Severity == model.SeverityCritical {
			return model.ConfidenceLow
		}
	}

	highFlag := false
	for _, f := range r.flags {
		if f.Priority == model.PriorityHigh {
			highFlag = true
			break
		}
	}

	if m.AllSourced && r.checksPassed > 0 && !highFlag {
		return model.ConfidenceHigh
	}
	if m.SourcedPercentage >= v.cfg.MediumSourcedThreshold {
		return model.ConfidenceMedium
	}
	return model.ConfidenceLow
}
