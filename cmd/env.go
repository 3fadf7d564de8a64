package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/extract"
	"github.com/sells-group/tp-screener/internal/llmextract"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/notes"
	"github.com/sells-group/tp-screener/internal/ocr"
	"github.com/sells-group/tp-screener/internal/pipeline"
	"github.com/sells-group/tp-screener/internal/risk"
	"github.com/sells-group/tp-screener/internal/store"
	"github.com/sells-group/tp-screener/internal/validate"
	"github.com/sells-group/tp-screener/pkg/anthropic"
)

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// buildPipeline wires the screening pipeline from config. The Anthropic
// client is shared by the LLM peer extractor and the narrative summarizer;
// both are optional and the pipeline degrades to pattern extraction with
// template narratives without an API key.
func buildPipeline() (*pipeline.Pipeline, error) {
	ocrExtractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, eris.Wrap(err, "init ocr")
	}

	patternExtractor, err := extract.NewDefault()
	if err != nil {
		return nil, eris.Wrap(err, "load pattern library")
	}

	var llmExtractor *llmextract.Extractor
	var summarizer risk.Summarizer
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		if cfg.Ensemble.Enabled {
			llmExtractor = llmextract.New(client, cfg.Anthropic.Model, cfg.Ensemble)
		}
		if cfg.Summary.Enabled {
			summarizer = risk.NewLLMSummarizer(client, cfg.Anthropic.Model, cfg.Summary)
		}
	} else {
		zap.L().Info("no anthropic key configured, using pattern extraction and template narratives only")
	}

	return pipeline.New(
		cfg,
		ocrExtractor,
		patternExtractor,
		llmExtractor,
		notes.NewResolver(nil),
		validate.New(cfg.Validation),
		risk.NewScorer(cfg.Risk, summarizer),
	), nil
}

// saveResult persists a screening run: the filing (with its extracted text)
// and the analysis record.
func saveResult(ctx context.Context, st store.Store, res *pipeline.Result) error {
	filing, err := st.CreateFiling(ctx, &res.Filing)
	if err != nil {
		return eris.Wrap(err, "save filing")
	}
	_, err = st.SaveAnalysis(ctx, &model.AnalysisRecord{
		FilingID:     filing.ID,
		BalanceSheet: res.BalanceSheet,
		ProfitLoss:   res.ProfitLoss,
		Validation:   res.Validation,
		Assessment:   res.Assessment,
	})
	if err != nil {
		return eris.Wrap(err, "save analysis")
	}
	zap.L().Info("saved screening result",
		zap.String("filing_id", filing.ID),
		zap.String("registration_id", filing.RegistrationID),
	)
	return nil
}
