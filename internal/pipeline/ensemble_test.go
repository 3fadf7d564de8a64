package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tp-screener/internal/model"
)

func val(amount float64, source string) model.ExtractedValue {
	return model.ExtractedValue{
		Amount:     &amount,
		Source:     &source,
		Confidence: model.ConfidenceMedium,
	}
}

func TestMergeExtractionsFillsGapsOnly(t *testing.T) {
	patternAmount := 517400000.0
	patternSource := "Créances sur des entreprises liées 517.400.000"
	bs := &model.BalanceSheetExtraction{
		ICLoansProvidedLongTerm: model.ExtractedValue{
			Amount:     &patternAmount,
			Source:     &patternSource,
			Confidence: model.ConfidenceHigh,
		},
	}
	pl := &model.ProfitAndLossExtraction{}

	llmBS := &model.BalanceSheetExtraction{
		ICLoansProvidedLongTerm: val(999, "llm quote"),            // must not override
		TotalAssets:             val(700000000, "Total du bilan"), // fills gap
	}
	llmPL := &model.ProfitAndLossExtraction{
		NetTurnover: val(4000000, "Chiffre d'affaires net"),
	}

	filled := mergeExtractions(bs, pl, llmBS, llmPL)
	assert.Equal(t, 2, filled)

	// Pattern value untouched.
	assert.InDelta(t, 517400000, *bs.ICLoansProvidedLongTerm.Amount, 0.01)
	assert.Equal(t, model.ConfidenceHigh, bs.ICLoansProvidedLongTerm.Confidence)

	// Gaps filled from the LLM candidate.
	require.NotNil(t, bs.TotalAssets.Amount)
	assert.InDelta(t, 700000000, *bs.TotalAssets.Amount, 0.01)
	require.NotNil(t, pl.NetTurnover.Amount)
}

func TestMergeExtractionsRejectsUnsourcedCandidates(t *testing.T) {
	bs := &model.BalanceSheetExtraction{}
	amount := 123.0
	llmBS := &model.BalanceSheetExtraction{
		TotalAssets: model.ExtractedValue{Amount: &amount}, // no source
	}

	filled := mergeExtractions(bs, &model.ProfitAndLossExtraction{}, llmBS, nil)
	assert.Equal(t, 0, filled)
	assert.Nil(t, bs.TotalAssets.Amount)
}

func TestMergeExtractionsNilCandidates(t *testing.T) {
	bs := &model.BalanceSheetExtraction{}
	pl := &model.ProfitAndLossExtraction{}
	assert.Equal(t, 0, mergeExtractions(bs, pl, nil, nil))
}
