package risk

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
)

// Summarizer produces a human-readable narrative for a computed assessment.
// Implementations may call an external service; failures are advisory and
// never block score computation.
type Summarizer interface {
	Summarize(ctx context.Context, in *Input, a *model.Assessment) (string, error)
}

// Input bundles everything the scorer consumes for one company-year.
type Input struct {
	CompanyName    string               `json:"company_name"`
	RegistrationID string               `json:"registration_id"`
	FiscalYear     int                  `json:"fiscal_year"`
	Facts          model.FinancialFacts `json:"facts"`
	Transactions   []model.Transaction  `json:"transactions"`
	Group          model.GroupProfile   `json:"group"`
}

// Scorer computes assessments with configured weights and thresholds.
type Scorer struct {
	cfg        config.RiskConfig
	summarizer Summarizer
}

// NewScorer creates a Scorer. summarizer may be nil; the deterministic
// template narrative is used then.
func NewScorer(cfg config.RiskConfig, summarizer Summarizer) *Scorer {
	return &Scorer{cfg: cfg, summarizer: summarizer}
}

// Score computes a best-effort Assessment. Missing inputs reduce positive
// signals rather than failing; the only fallible part is the narrative, which
// falls back to a template.
func (s *Scorer) Score(ctx context.Context, in *Input) *model.Assessment {
	ind := deriveIndicators(in, s.cfg)

	a := &model.Assessment{
		CompanyName:        in.CompanyName,
		RegistrationID:     in.RegistrationID,
		FiscalYear:         in.FiscalYear,
		Indicators:         ind,
		FinancingScore:     toScore(scoreFinancing(in, ind, s.cfg)),
		ServicesScore:      toScore(scoreServices(in, ind)),
		DocumentationScore: toScore(scoreDocumentation(in, ind)),
		MaterialityScore:   toScore(scoreMateriality(in.Facts.TotalAssets)),
		ComplexityScore:    toScore(scoreComplexity(in.Transactions)),
		ScoredAt:           time.Now().UTC(),
	}

	a.TotalScore = s.totalScore(a)
	a.PriorityTier = s.tier(a.TotalScore)
	a.Narrative, a.NarrativeSource = s.narrative(ctx, in, a)

	zap.L().Info("risk: scored company",
		zap.String("company", in.CompanyName),
		zap.Int("fiscal_year", in.FiscalYear),
		zap.Int("total_score", a.TotalScore),
		zap.String("tier", string(a.PriorityTier)),
		zap.String("narrative_source", a.NarrativeSource),
	)
	return a
}

// totalScore combines the 0-100 sub-scores by the configured weights and
// normalizes back to 0-100.
func (s *Scorer) totalScore(a *model.Assessment) int {
	weightSum := WeightSum(s.cfg)
	if weightSum <= 0 {
		return 0
	}
	total := float64(a.FinancingScore)*s.cfg.FinancingWeight +
		float64(a.ServicesScore)*s.cfg.ServicesWeight +
		float64(a.DocumentationScore)*s.cfg.DocumentationWeight +
		float64(a.MaterialityScore)*s.cfg.MaterialityWeight +
		float64(a.ComplexityScore)*s.cfg.ComplexityWeight
	return clampScore(int(math.Round(total / weightSum)))
}

func (s *Scorer) tier(total int) model.PriorityTier {
	switch {
	case total >= s.cfg.TierAThreshold:
		return model.TierA
	case total >= s.cfg.TierBThreshold:
		return model.TierB
	default:
		return model.TierC
	}
}

// deriveIndicators computes the boolean signals once so sub-scores and the
// narrative agree with each other.
func deriveIndicators(in *Input, cfg config.RiskConfig) model.RiskIndicators {
	ind := model.RiskIndicators{
		RateAnomaly: in.Facts.HasRateAnomaly,
	}

	if in.Facts.ICLoansProvided > 0 || in.Facts.ICLoansReceived > 0 {
		ind.HasICFinancing = true
	}
	serviceTypes := make(map[model.TransactionType]bool)
	for _, tx := range in.Transactions {
		switch tx.Type {
		case model.TransactionLoan, model.TransactionCashPool, model.TransactionGuarantee:
			ind.HasICFinancing = true
		case model.TransactionManagementFee, model.TransactionServiceFee:
			ind.HasICServices = true
			serviceTypes[tx.Type] = true
		case model.TransactionRoyalty:
			ind.HasICServices = true
			ind.HasRoyalties = true
			serviceTypes[tx.Type] = true
		}
		if tx.CrossBorder {
			ind.HasCrossBorder = true
		}
	}
	if in.Group.ForeignParent {
		ind.HasCrossBorder = true
	}

	if in.Facts.TotalEquity != nil && *in.Facts.TotalEquity > 0 && in.Facts.TotalDebt != nil {
		if *in.Facts.TotalDebt / *in.Facts.TotalEquity > cfg.ThinCapRatio {
			ind.ThinCapitalisation = true
		}
	}
	if in.Facts.TotalDebt != nil && *in.Facts.TotalDebt > 0 {
		if in.Facts.ICLoansReceived / *in.Facts.TotalDebt > cfg.ICDebtConcentration {
			ind.HighICConcentration = true
		}
	}

	volume := icVolume(in)
	if cfg.LocalFileThreshold > 0 && volume >= cfg.LocalFileThreshold {
		ind.LocalFileRequired = true
	}
	if cfg.MasterFileThreshold > 0 && volume >= cfg.MasterFileThreshold {
		ind.MasterFileRequired = true
	}

	return ind
}

// icVolume sums loan balances and transaction amounts as the documentation
// threshold base.
func icVolume(in *Input) float64 {
	v := in.Facts.ICLoansProvided + in.Facts.ICLoansReceived
	for _, tx := range in.Transactions {
		v += math.Abs(tx.Amount)
	}
	return v
}

// scoreFinancing returns 0.0-1.0 from the financing risk signals.
func scoreFinancing(in *Input, ind model.RiskIndicators, cfg config.RiskConfig) float64 {
	var score float64

	if ind.HasICFinancing {
		score += 0.30
	}
	if cfg.LoanVolumeThreshold > 0 &&
		in.Facts.ICLoansProvided+in.Facts.ICLoansReceived >= cfg.LoanVolumeThreshold {
		score += 0.20
	}
	if ind.ThinCapitalisation {
		score += 0.20
	}
	if ind.HighICConcentration {
		score += 0.15
	}
	if ind.RateAnomaly {
		score += 0.15
	}

	return math.Min(score, 1.0)
}

// scoreServices returns 0.0-1.0 from presence, volume, cross-border nature
// and diversity of service-type transactions.
func scoreServices(in *Input, ind model.RiskIndicators) float64 {
	if !ind.HasICServices {
		return 0
	}

	score := 0.35

	var volume float64
	types := make(map[model.TransactionType]bool)
	crossBorder := false
	for _, tx := range in.Transactions {
		if !isServiceType(tx.Type) {
			continue
		}
		volume += math.Abs(tx.Amount)
		types[tx.Type] = true
		if tx.CrossBorder {
			crossBorder = true
		}
	}

	// Volume scaled against 10M; service fees run far smaller than loans.
	score += math.Min(volume/10_000_000, 1.0) * 0.25
	if crossBorder {
		score += 0.20
	}
	score += math.Min(float64(len(types))/float64(len(model.ServiceTypes())), 1.0) * 0.20

	return math.Min(score, 1.0)
}

func isServiceType(t model.TransactionType) bool {
	for _, st := range model.ServiceTypes() {
		if t == st {
			return true
		}
	}
	return false
}

// scoreDocumentation returns 0.0-1.0 from group structure and documentation
// file obligations.
func scoreDocumentation(in *Input, ind model.RiskIndicators) float64 {
	var score float64

	if in.Group.HasGroup {
		score += 0.20
	}
	if in.Group.ForeignParent {
		score += 0.20
	}

	categories := make(map[model.TransactionType]bool)
	for _, tx := range in.Transactions {
		categories[tx.Type] = true
	}
	if ind.HasICFinancing {
		categories[model.TransactionLoan] = true
	}
	score += math.Min(float64(len(categories))/4.0, 1.0) * 0.20

	if ind.HasCrossBorder {
		score += 0.15
	}
	if ind.LocalFileRequired {
		score += 0.15
	}
	if ind.MasterFileRequired {
		score += 0.10
	}

	return math.Min(score, 1.0)
}

// scoreMateriality buckets total-assets magnitude. Unknown assets score a
// small residual so materiality never dominates on missing data.
func scoreMateriality(totalAssets *float64) float64 {
	if totalAssets == nil || *totalAssets <= 0 {
		return 0.2
	}
	switch v := *totalAssets; {
	case v >= 1_000_000_000:
		return 1.0
	case v >= 500_000_000:
		return 0.8
	case v >= 100_000_000:
		return 0.6
	case v >= 10_000_000:
		return 0.4
	default:
		return 0.2
	}
}

// scoreComplexity buckets transaction count and type diversity.
func scoreComplexity(txns []model.Transaction) float64 {
	if len(txns) == 0 {
		return 0
	}
	types := make(map[model.TransactionType]bool)
	for _, tx := range txns {
		types[tx.Type] = true
	}
	countScore := math.Min(float64(len(txns))/10.0, 1.0)
	diversityScore := math.Min(float64(len(types))/5.0, 1.0)
	return countScore*0.6 + diversityScore*0.4
}

// narrative asks the summarizer; any failure or absence substitutes the
// deterministic template.
func (s *Scorer) narrative(ctx context.Context, in *Input, a *model.Assessment) (string, string) {
	if s.summarizer != nil {
		text, err := s.summarizer.Summarize(ctx, in, a)
		if err == nil && text != "" {
			return text, "llm"
		}
		if err != nil {
			zap.L().Warn("risk: narrative summary failed, using template",
				zap.String("company", in.CompanyName),
				zap.Error(err),
			)
		}
	}
	return templateNarrative(in, a), "template"
}

func toScore(v float64) int {
	return clampScore(int(math.Round(v * 100)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
