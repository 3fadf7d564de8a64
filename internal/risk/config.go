// Package risk computes transfer-pricing risk assessments from validated
// financial facts and intercompany transaction records.
package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/config"
)

// DefaultRiskConfig returns a config.RiskConfig with Luxembourg screening
// defaults. Weights sum to 1.0.
func DefaultRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		FinancingWeight:     0.35,
		ServicesWeight:      0.25,
		DocumentationWeight: 0.20,
		MaterialityWeight:   0.10,
		ComplexityWeight:    0.10,

		ThinCapRatio:        3.0,
		ICDebtConcentration: 0.70,
		LoanVolumeThreshold: 50_000_000,
		LocalFileThreshold:  60_000_000,
		MasterFileThreshold: 100_000_000,

		TierAThreshold: 70,
		TierBThreshold: 40,
	}
}

// WeightSum returns the sum of all sub-score weights.
func WeightSum(c config.RiskConfig) float64 {
	return c.FinancingWeight + c.ServicesWeight + c.DocumentationWeight +
		c.MaterialityWeight + c.ComplexityWeight
}

// ValidateConfig checks that a RiskConfig is internally consistent.
func ValidateConfig(c config.RiskConfig) error {
	var errs []string

	weights := map[string]float64{
		"financing_weight":     c.FinancingWeight,
		"services_weight":      c.ServicesWeight,
		"documentation_weight": c.DocumentationWeight,
		"materiality_weight":   c.MaterialityWeight,
		"complexity_weight":    c.ComplexityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1.0, got %.2f", sum))
	}

	if c.ThinCapRatio <= 0 {
		errs = append(errs, "thin_cap_ratio must be > 0")
	}
	if c.ICDebtConcentration <= 0 || c.ICDebtConcentration > 1 {
		errs = append(errs, "ic_debt_concentration must be in (0, 1]")
	}
	if c.LoanVolumeThreshold < 0 {
		errs = append(errs, "loan_volume_threshold must be >= 0")
	}
	if c.LocalFileThreshold < 0 {
		errs = append(errs, "local_file_threshold must be >= 0")
	}
	if c.MasterFileThreshold > 0 && c.MasterFileThreshold < c.LocalFileThreshold {
		errs = append(errs, "master_file_threshold must be >= local_file_threshold")
	}

	if c.TierAThreshold < 0 || c.TierAThreshold > 100 {
		errs = append(errs, "tier_a_threshold must be between 0 and 100")
	}
	if c.TierBThreshold < 0 || c.TierBThreshold > c.TierAThreshold {
		errs = append(errs, "tier_b_threshold must be between 0 and tier_a_threshold")
	}

	if len(errs) > 0 {
		return eris.Errorf("risk: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
