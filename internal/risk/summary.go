package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/pkg/anthropic"
)

const summarySystemPrompt = `You are a transfer-pricing analyst reviewing Luxembourg annual accounts.
Write a short assessment narrative (3-5 sentences) for the company described in the user message.
Base every statement strictly on the supplied scores and indicators; do not invent facts, amounts, or counterparties.
Plain prose, no headings, no bullet points.`

// LLMSummarizer produces assessment narratives via the Anthropic API. It
// rate-limits outbound calls and caches results per company-year so repeated
// scoring runs do not re-bill identical prompts.
type LLMSummarizer struct {
	client  anthropic.Client
	model   string
	cfg     config.SummaryConfig
	cache   *gocache.Cache
	limiter *rate.Limiter
}

// NewLLMSummarizer creates a summarizer. The configured rate is requests per
// minute; the timeout bounds each individual call.
func NewLLMSummarizer(client anthropic.Client, model string, cfg config.SummaryConfig) *LLMSummarizer {
	ttl := time.Duration(cfg.CacheTTLMins) * time.Minute
	perSecond := cfg.RatePerMinute / 60
	if perSecond <= 0 {
		perSecond = 0.5
	}
	return &LLMSummarizer{
		client:  client,
		model:   model,
		cfg:     cfg,
		cache:   gocache.New(ttl, 2*ttl),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Summarize returns narrative text for the assessment. Errors are returned to
// the scorer, which substitutes the deterministic template.
func (s *LLMSummarizer) Summarize(ctx context.Context, in *Input, a *model.Assessment) (string, error) {
	key := fmt.Sprintf("%s|%d|%d", a.RegistrationID, a.FiscalYear, a.TotalScore)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "risk: summary rate limit wait")
	}

	prompt, err := buildSummaryPrompt(in, a)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: 512,
		System:    anthropic.BuildCachedSystemBlocks(summarySystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "risk: summary call")
	}
	resp.Usage.LogCost(s.model, "summary")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("risk: summary response empty")
	}

	s.cache.Set(key, text, gocache.DefaultExpiration)
	return text, nil
}

// buildSummaryPrompt serializes the scoring context for the model. JSON keeps
// the prompt unambiguous and the narrative grounded in computed values only.
func buildSummaryPrompt(in *Input, a *model.Assessment) (string, error) {
	payload := map[string]any{
		"company_name":        in.CompanyName,
		"fiscal_year":         in.FiscalYear,
		"group":               in.Group,
		"financial_facts":     in.Facts,
		"transaction_count":   len(in.Transactions),
		"indicators":          a.Indicators,
		"financing_score":     a.FinancingScore,
		"services_score":      a.ServicesScore,
		"documentation_score": a.DocumentationScore,
		"materiality_score":   a.MaterialityScore,
		"complexity_score":    a.ComplexityScore,
		"total_score":         a.TotalScore,
		"priority_tier":       a.PriorityTier,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "risk: marshal summary prompt")
	}
	return string(data), nil
}

// templateNarrative is the deterministic fallback used whenever the LLM call
// is disabled, times out, or fails.
func templateNarrative(in *Input, a *model.Assessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s scores %d/100 (tier %s) for fiscal year %d.",
		in.CompanyName, a.TotalScore, a.PriorityTier, in.FiscalYear)

	var signals []string
	if a.Indicators.HasICFinancing {
		signals = append(signals, "intercompany financing")
	}
	if a.Indicators.HasICServices {
		signals = append(signals, "intercompany services")
	}
	if a.Indicators.HasRoyalties {
		signals = append(signals, "royalty arrangements")
	}
	if a.Indicators.ThinCapitalisation {
		signals = append(signals, "thin capitalisation")
	}
	if a.Indicators.HighICConcentration {
		signals = append(signals, "concentrated intercompany debt")
	}
	if a.Indicators.RateAnomaly {
		signals = append(signals, "interest rate anomalies")
	}
	if a.Indicators.HasCrossBorder {
		signals = append(signals, "cross-border exposure")
	}
	if len(signals) > 0 {
		fmt.Fprintf(&b, " Primary signals: %s.", strings.Join(signals, ", "))
	} else {
		b.WriteString(" No material transfer-pricing signals were identified.")
	}

	switch {
	case a.Indicators.MasterFileRequired:
		b.WriteString(" Intercompany volume meets the master file documentation threshold.")
	case a.Indicators.LocalFileRequired:
		b.WriteString(" Intercompany volume meets the local file documentation threshold.")
	}

	fmt.Fprintf(&b, " Sub-scores: financing %d, services %d, documentation %d, materiality %d, complexity %d.",
		a.FinancingScore, a.ServicesScore, a.DocumentationScore, a.MaterialityScore, a.ComplexityScore)

	return b.String()
}
