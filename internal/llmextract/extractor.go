// Package llmextract runs the LLM-based peer extraction path. Its output is
// shaped exactly like the pattern extractor's so both feed the same
// cross-validator; the model is one more candidate source to validate, never
// a privileged source of truth. Every amount must arrive with a verbatim
// quote from the document, and nothing here exceeds medium confidence.
package llmextract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/pkg/anthropic"
)

const extractSystemPrompt = `You extract financial line items from Luxembourg annual accounts (French or English).
Return ONLY a JSON object. For each field you find, emit {"amount": <number>, "quote": "<verbatim text from the document containing the amount>"}.
Omit fields you cannot find. Never guess, never compute, never return an amount without its verbatim quote.
For the "a)" affiliate sub-lines, quote the sub-line itself, not the parent total line.
Fields:
  shares_in_affiliated_undertakings, ic_loans_provided_long_term, ic_loans_provided_short_term,
  ic_loans_received_long_term, ic_loans_received_short_term, total_assets, total_equity,
  other_operating_income, dividend_income_from_affiliates, item_10_interest_total,
  item_10a_interest_from_affiliates, item_11_interest_total, item_11a_interest_from_affiliates,
  interest_payable_total, interest_payable_to_affiliates, net_turnover, net_profit_loss`

// candidate is one field in the model's JSON reply.
type candidate struct {
	Amount *float64 `json:"amount"`
	Quote  string   `json:"quote"`
}

// Extractor calls the model and converts its reply into extraction structures.
type Extractor struct {
	client anthropic.Client
	model  string
	cfg    config.EnsembleConfig
}

// New creates an Extractor.
func New(client anthropic.Client, modelID string, cfg config.EnsembleConfig) *Extractor {
	return &Extractor{client: client, model: modelID, cfg: cfg}
}

// Extract asks the model for the line items and maps the reply onto the
// extraction structures. Candidates without a verbatim quote are dropped, so
// an amount without a source cannot leave this package.
func (e *Extractor) Extract(ctx context.Context, text string) (*model.BalanceSheetExtraction, *model.ProfitAndLossExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(extractSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "llmextract: create message")
	}
	resp.Usage.LogCost(e.model, "ensemble_extract")

	candidates, err := parseReply(resp.Text())
	if err != nil {
		return nil, nil, err
	}

	bs := &model.BalanceSheetExtraction{}
	pl := &model.ProfitAndLossExtraction{}
	kept, dropped := 0, 0
	for _, f := range append(bs.Fields(), pl.Fields()...) {
		c, ok := candidates[f.Name]
		if !ok || c.Amount == nil {
			continue
		}
		quote := strings.TrimSpace(c.Quote)
		if quote == "" {
			// An unquoted amount is exactly the hallucination shape the
			// validator exists to catch. Drop it here instead.
			dropped++
			continue
		}
		amount := *c.Amount
		source := quote
		f.Value.Amount = &amount
		f.Value.Source = &source
		f.Value.Confidence = model.ConfidenceMedium
		f.Value.MatchedPattern = "llm"
		kept++
	}

	zap.L().Info("llmextract: extraction complete",
		zap.Int("fields_kept", kept),
		zap.Int("fields_dropped_unquoted", dropped),
	)
	return bs, pl, nil
}

// parseReply decodes the model's JSON object, tolerating surrounding prose
// and markdown fences.
func parseReply(text string) (map[string]candidate, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.New("llmextract: no JSON object in reply")
	}

	var candidates map[string]candidate
	if err := json.Unmarshal([]byte(text[start:end+1]), &candidates); err != nil {
		return nil, eris.Wrap(err, "llmextract: decode reply")
	}
	return candidates, nil
}
