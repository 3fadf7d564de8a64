// Package pipeline orchestrates the screening run for a single filing:
// OCR, field extraction, note resolution, cross-validation, risk scoring
// and the reviewer report.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/extract"
	"github.com/sells-group/tp-screener/internal/llmextract"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/notes"
	"github.com/sells-group/tp-screener/internal/ocr"
	"github.com/sells-group/tp-screener/internal/risk"
	"github.com/sells-group/tp-screener/internal/validate"
)

// PhaseStatus reports how a pipeline phase ended.
type PhaseStatus string

const (
	PhaseComplete PhaseStatus = "complete"
	PhaseFailed   PhaseStatus = "failed"
	PhaseSkipped  PhaseStatus = "skipped"
)

// PhaseResult records one phase's outcome for the run log and report.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CompanyInput carries the caller-supplied reference data a screening run
// needs beyond the filing itself: registry context for validation plus any
// known intercompany transactions and group structure for scoring.
type CompanyInput struct {
	Context      model.CompanyValidationContext
	Transactions []model.Transaction
	Group        model.GroupProfile
}

// Result is the full outcome of one screening run.
type Result struct {
	Filing       model.Filing
	BalanceSheet *model.BalanceSheetExtraction
	ProfitLoss   *model.ProfitAndLossExtraction
	Notes        map[string]*model.NoteParsingResult
	Validation   *model.ValidationResult
	Assessment   *model.Assessment
	Report       string
	Phases       []PhaseResult
}

// Pipeline wires the screening components together. The LLM extractor is
// optional; when absent the pattern extractor runs alone.
type Pipeline struct {
	cfg       *config.Config
	ocr       ocr.Extractor
	extractor *extract.Extractor
	llm       *llmextract.Extractor
	notes     *notes.Resolver
	validator *validate.Validator
	scorer    *risk.Scorer
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	ocrExtractor ocr.Extractor,
	patternExtractor *extract.Extractor,
	llmExtractor *llmextract.Extractor,
	noteResolver *notes.Resolver,
	validator *validate.Validator,
	scorer *risk.Scorer,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		ocr:       ocrExtractor,
		extractor: patternExtractor,
		llm:       llmExtractor,
		notes:     noteResolver,
		validator: validator,
		scorer:    scorer,
	}
}

// Run executes the full screening pipeline for a single filing. Extraction
// and validation findings never abort the run; only a filing with no text at
// all is a hard failure.
func (p *Pipeline) Run(ctx context.Context, filing *model.Filing, company CompanyInput) (*Result, error) {
	log := zap.L().With(
		zap.String("registration_id", filing.RegistrationID),
		zap.Int("fiscal_year", filing.FiscalYear),
	)
	log.Info("pipeline: starting screening run")

	result := &Result{Filing: *filing}

	// Phase tracking with a mutex: the extraction phases run concurrently.
	var phasesMu sync.Mutex
	trackPhase := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		pr := PhaseResult{
			Name:     name,
			Status:   PhaseComplete,
			Duration: time.Since(start).Milliseconds(),
			Metadata: meta,
		}
		if err != nil {
			pr.Status = PhaseFailed
			pr.Error = err.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.Duration),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", pr.Duration),
			)
		}
		phasesMu.Lock()
		result.Phases = append(result.Phases, pr)
		phasesMu.Unlock()
		return err
	}

	// ===== Phase 1: OCR =====
	text := filing.Text
	err := trackPhase("1_ocr", func() (map[string]any, error) {
		if text != "" {
			return map[string]any{"from": "stored_text"}, nil
		}
		if filing.StoragePath == "" {
			return nil, eris.New("pipeline: filing has neither text nor storage path")
		}
		extracted, ocrErr := p.ocr.ExtractText(ctx, filing.StoragePath)
		if ocrErr != nil {
			return nil, ocrErr
		}
		text = extracted
		return map[string]any{"from": "ocr", "chars": len(extracted)}, nil
	})
	if err != nil {
		return result, err
	}
	if text == "" {
		return result, eris.New("pipeline: no text extracted from filing")
	}
	result.Filing.Text = text

	// ===== Phase 2: Extraction (pattern + optional LLM peer, in parallel) =====
	var bs *model.BalanceSheetExtraction
	var pl *model.ProfitAndLossExtraction
	var llmBS *model.BalanceSheetExtraction
	var llmPL *model.ProfitAndLossExtraction

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return trackPhase("2a_extract", func() (map[string]any, error) {
			bs, pl = p.extractor.Extract(text)
			return map[string]any{
				"balance_sheet_fields": foundCount(bs.Fields()),
				"profit_loss_fields":   foundCount(pl.Fields()),
			}, nil
		})
	})
	if p.llm != nil && p.cfg.Ensemble.Enabled {
		g.Go(func() error {
			// The LLM is a peer candidate source; its failure never fails
			// the run.
			_ = trackPhase("2b_llm_extract", func() (map[string]any, error) {
				lbs, lpl, llmErr := p.llm.Extract(gCtx, text)
				if llmErr != nil {
					return nil, llmErr
				}
				llmBS, llmPL = lbs, lpl
				return map[string]any{
					"balance_sheet_fields": foundCount(lbs.Fields()),
					"profit_loss_fields":   foundCount(lpl.Fields()),
				}, nil
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	if llmBS != nil || llmPL != nil {
		filled := mergeExtractions(bs, pl, llmBS, llmPL)
		if filled > 0 {
			log.Info("pipeline: llm candidates filled gaps", zap.Int("fields", filled))
		}
	}
	result.BalanceSheet = bs
	result.ProfitLoss = pl

	// ===== Phase 3: Note resolution =====
	_ = trackPhase("3_notes", func() (map[string]any, error) {
		refs := pl.NoteReferences()
		result.Notes = p.notes.ResolveAll(text, refs)
		return map[string]any{"notes_cited": len(refs)}, nil
	})

	// ===== Phase 4: Cross-validation =====
	_ = trackPhase("4_validate", func() (map[string]any, error) {
		result.Validation = p.validator.Validate(bs, pl, result.Notes, company.Context)
		return map[string]any{
			"valid":    result.Validation.IsValid,
			"errors":   len(result.Validation.Errors),
			"warnings": len(result.Validation.Warnings),
			"flags":    len(result.Validation.Flags),
		}, nil
	})

	// ===== Phase 5: Risk scoring =====
	_ = trackPhase("5_score", func() (map[string]any, error) {
		in := &risk.Input{
			CompanyName:    filing.CompanyName,
			RegistrationID: filing.RegistrationID,
			FiscalYear:     filing.FiscalYear,
			Facts:          BuildFacts(bs, pl, result.Validation, company.Context),
			Transactions:   company.Transactions,
			Group:          company.Group,
		}
		result.Assessment = p.scorer.Score(ctx, in)
		return map[string]any{
			"total_score": result.Assessment.TotalScore,
			"tier":        string(result.Assessment.PriorityTier),
		}, nil
	})

	// ===== Phase 6: Report =====
	_ = trackPhase("6_report", func() (map[string]any, error) {
		result.Report = FormatReport(result)
		return nil, nil
	})

	log.Info("pipeline: screening run complete",
		zap.Bool("valid", result.Validation != nil && result.Validation.IsValid),
		zap.Int("total_score", result.Assessment.TotalScore),
		zap.String("tier", string(result.Assessment.PriorityTier)),
	)
	return result, nil
}

// BuildFacts distills the validated extractions into the risk-relevant facts.
// Registry figures from the company context take precedence over extracted
// totals, matching the validator's magnitude check.
func BuildFacts(bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction, val *model.ValidationResult, cctx model.CompanyValidationContext) model.FinancialFacts {
	facts := model.FinancialFacts{
		ICLoansProvided:          bs.ICLoansProvidedTotal(),
		ICLoansReceived:          bs.ICLoansReceivedTotal(),
		AffiliateInterestIncome:  pl.AffiliateInterestIncome(),
		AffiliateInterestExpense: pl.InterestPayableToAffiliates.AmountOrZero(),
	}

	facts.TotalAssets = pickAmount(cctx.TotalAssets, bs.TotalAssets)
	facts.TotalEquity = pickAmount(cctx.TotalEquity, bs.TotalEquity)
	if facts.TotalAssets != nil && facts.TotalEquity != nil {
		debt := *facts.TotalAssets - *facts.TotalEquity
		if debt < 0 {
			debt = 0
		}
		facts.TotalDebt = &debt
	}

	if val != nil {
		facts.HasRateAnomaly = val.HasFlag(model.FlagImplausibleRate)
	}
	return facts
}

// pickAmount prefers the registry figure, falling back to the extracted one.
// Returns a fresh pointer so the facts never alias the extraction.
func pickAmount(registry *float64, extracted model.ExtractedValue) *float64 {
	if registry != nil {
		v := *registry
		return &v
	}
	if extracted.Found() {
		v := *extracted.Amount
		return &v
	}
	return nil
}

func foundCount(fields []model.NamedValue) int {
	n := 0
	for _, f := range fields {
		if f.Value.Found() {
			n++
		}
	}
	return n
}
