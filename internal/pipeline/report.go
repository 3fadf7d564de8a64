package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/tp-screener/internal/model"
)

// FormatReport renders the reviewer-facing screening report. Every amount is
// shown with its verbatim source quote so a reviewer can verify provenance
// without opening the filing.
func FormatReport(res *Result) string {
	pr := message.NewPrinter(language.English)
	var b strings.Builder

	fmt.Fprintf(&b, "# Screening Report: %s\n", res.Filing.CompanyName)
	fmt.Fprintf(&b, "Registration: %s | Fiscal year: %d | Currency: %s\n\n",
		res.Filing.RegistrationID, res.Filing.FiscalYear, res.Filing.Currency)

	// Verification status.
	b.WriteString("## Verification\n")
	if res.Validation != nil {
		status := "VERIFIED"
		if !res.Validation.IsValid {
			status = "FAILED — critical findings below"
		}
		fmt.Fprintf(&b, "- Status: %s\n", status)
		m := res.Validation.QualityMetrics
		fmt.Fprintf(&b, "- Confidence: %s (%d/%d values sourced)\n",
			strings.ToUpper(string(m.Confidence)), m.ValuesWithSources, m.ValuesExtracted)
		for _, e := range res.Validation.Errors {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Severity, e.Field, e.Issue)
		}
		for _, w := range res.Validation.Warnings {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", w.Severity, w.Field, w.Issue)
		}
	} else {
		b.WriteString("- Status: NOT VALIDATED\n")
	}
	b.WriteString("\n")

	// Extracted financials with provenance.
	b.WriteString("## Extracted Financials\n")
	lines := 0
	if res.BalanceSheet != nil {
		lines += writeFields(&b, pr, res.BalanceSheet.Fields())
	}
	if res.ProfitLoss != nil {
		lines += writeFields(&b, pr, res.ProfitLoss.Fields())
	}
	if lines == 0 {
		b.WriteString("No fields extracted.\n")
	}
	b.WriteString("\n")

	// Opportunity flags.
	if res.Validation != nil && len(res.Validation.Flags) > 0 {
		b.WriteString("## Opportunity Flags\n")
		for _, f := range res.Validation.Flags {
			fmt.Fprintf(&b, "- **%s** [%s]: %s", f.Type, f.Priority, f.Description)
			if f.EstimatedValue > 0 {
				pr.Fprintf(&b, " (est. %.0f)", f.EstimatedValue)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Risk assessment.
	if a := res.Assessment; a != nil {
		b.WriteString("## Risk Assessment\n")
		fmt.Fprintf(&b, "- Total score: %d/100 (tier %s)\n", a.TotalScore, a.PriorityTier)
		fmt.Fprintf(&b, "- Financing %d | Services %d | Documentation %d | Materiality %d | Complexity %d\n",
			a.FinancingScore, a.ServicesScore, a.DocumentationScore, a.MaterialityScore, a.ComplexityScore)
		if a.Narrative != "" {
			fmt.Fprintf(&b, "\n%s\n", a.Narrative)
		}
		b.WriteString("\n")
	}

	// Phase log.
	b.WriteString("## Phases\n")
	for _, p := range res.Phases {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", p.Name, p.Status, p.Duration)
		if p.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", p.Error)
		}
	}

	return b.String()
}

func writeFields(b *strings.Builder, pr *message.Printer, fields []model.NamedValue) int {
	written := 0
	for _, f := range fields {
		v := f.Value
		if !v.Found() {
			continue
		}
		pr.Fprintf(b, "- **%s**: %.0f", f.Name, *v.Amount)
		fmt.Fprintf(b, " [%s]", v.Confidence)
		if v.PageNumber != nil {
			fmt.Fprintf(b, " (p.%d)", *v.PageNumber)
		}
		b.WriteString("\n")
		if v.Source != nil {
			fmt.Fprintf(b, "  > %s\n", *v.Source)
		}
		written++
	}
	return written
}
