package risk

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/db"
	"github.com/sells-group/tp-screener/internal/model"
)

// SaveAssessments persists assessments to the assessments table. One row per
// company and fiscal year; re-scoring supersedes the previous row rather than
// inserting a duplicate.
func SaveAssessments(ctx context.Context, pool db.Pool, assessments []model.Assessment, configHash string) error {
	if len(assessments) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "risk: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, a := range assessments {
		indicators, err := json.Marshal(a.Indicators)
		if err != nil {
			return eris.Wrapf(err, "risk: marshal indicators for %s", a.RegistrationID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO assessments
				(registration_id, company_name, fiscal_year, indicators,
				 financing_score, services_score, documentation_score,
				 materiality_score, complexity_score, total_score,
				 priority_tier, narrative, narrative_source, config_hash, scored_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (registration_id, fiscal_year) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				indicators = EXCLUDED.indicators,
				financing_score = EXCLUDED.financing_score,
				services_score = EXCLUDED.services_score,
				documentation_score = EXCLUDED.documentation_score,
				materiality_score = EXCLUDED.materiality_score,
				complexity_score = EXCLUDED.complexity_score,
				total_score = EXCLUDED.total_score,
				priority_tier = EXCLUDED.priority_tier,
				narrative = EXCLUDED.narrative,
				narrative_source = EXCLUDED.narrative_source,
				config_hash = EXCLUDED.config_hash,
				scored_at = EXCLUDED.scored_at
		`, a.RegistrationID, a.CompanyName, a.FiscalYear, indicators,
			a.FinancingScore, a.ServicesScore, a.DocumentationScore,
			a.MaterialityScore, a.ComplexityScore, a.TotalScore,
			string(a.PriorityTier), a.Narrative, a.NarrativeSource, configHash, a.ScoredAt)
		if err != nil {
			return eris.Wrapf(err, "risk: upsert assessment for %s/%d", a.RegistrationID, a.FiscalYear)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "risk: commit assessments")
	}

	zap.L().Info("risk: saved assessments",
		zap.Int("count", len(assessments)),
		zap.String("config_hash", configHash),
	)
	return nil
}

// LoadTierResults loads the latest assessments at or above the given minimum
// total score, ordered best first.
func LoadTierResults(ctx context.Context, pool db.Pool, minScore int) ([]model.Assessment, error) {
	rows, err := pool.Query(ctx, `
		SELECT registration_id, company_name, fiscal_year, indicators,
		       financing_score, services_score, documentation_score,
		       materiality_score, complexity_score, total_score,
		       priority_tier, narrative, narrative_source, scored_at
		FROM assessments
		WHERE total_score >= $1
		ORDER BY total_score DESC, company_name
	`, minScore)
	if err != nil {
		return nil, eris.Wrap(err, "risk: query assessments")
	}
	defer rows.Close()

	var results []model.Assessment
	for rows.Next() {
		var a model.Assessment
		var indicatorsJSON []byte
		var tier string
		err := rows.Scan(
			&a.RegistrationID, &a.CompanyName, &a.FiscalYear, &indicatorsJSON,
			&a.FinancingScore, &a.ServicesScore, &a.DocumentationScore,
			&a.MaterialityScore, &a.ComplexityScore, &a.TotalScore,
			&tier, &a.Narrative, &a.NarrativeSource, &a.ScoredAt,
		)
		if err != nil {
			return nil, eris.Wrap(err, "risk: scan assessment")
		}
		a.PriorityTier = model.PriorityTier(tier)
		if len(indicatorsJSON) > 0 {
			if err := json.Unmarshal(indicatorsJSON, &a.Indicators); err != nil {
				return nil, eris.Wrapf(err, "risk: unmarshal indicators for %s", a.RegistrationID)
			}
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "risk: iterate assessments")
	}

	zap.L().Info("risk: loaded assessments",
		zap.Int("min_score", minScore),
		zap.Int("count", len(results)),
	)
	return results, nil
}

// ConfigHash returns a SHA-256 hash of the scoring config for reproducibility.
func ConfigHash(cfg interface{}) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
