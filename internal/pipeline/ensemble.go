package pipeline

import "github.com/sells-group/tp-screener/internal/model"

// mergeExtractions folds LLM candidate values into the pattern extraction.
// A field the pattern extractor already sourced is never overridden; the LLM
// only fills gaps, and its values arrive pre-capped at medium confidence.
// Returns the number of fields filled.
func mergeExtractions(bs *model.BalanceSheetExtraction, pl *model.ProfitAndLossExtraction, llmBS *model.BalanceSheetExtraction, llmPL *model.ProfitAndLossExtraction) int {
	filled := 0
	if llmBS != nil {
		filled += fillGaps(bs.Fields(), llmBS.Fields())
	}
	if llmPL != nil {
		filled += fillGaps(pl.Fields(), llmPL.Fields())
	}
	return filled
}

// fillGaps copies candidate values into unfound destination fields. Both
// slices come from Fields() and share the same order.
func fillGaps(dst, src []model.NamedValue) int {
	filled := 0
	for i := range dst {
		if dst[i].Value.Found() {
			continue
		}
		cand := src[i].Value
		// A candidate without provenance is never admitted, whatever
		// produced it.
		if !cand.Found() || cand.Source == nil {
			continue
		}
		*dst[i].Value = *cand
		filled++
	}
	return filled
}
