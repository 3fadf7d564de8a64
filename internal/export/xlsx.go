// Package export writes screening results to reviewer-facing files.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/model"
)

var assessmentHeader = []string{
	"Company", "Registration", "Fiscal Year", "Tier", "Total Score",
	"Financing", "Services", "Documentation", "Materiality", "Complexity",
	"IC Financing", "Thin Cap", "Rate Anomaly", "Local File", "Master File",
	"Narrative",
}

// WriteAssessmentsXLSX writes assessments to an XLSX workbook, one row per
// company, ordered as given (callers sort by score before exporting).
func WriteAssessmentsXLSX(path string, assessments []model.Assessment) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Assessments")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range assessmentHeader {
		header.AddCell().SetString(h)
	}

	for _, a := range assessments {
		row := sheet.AddRow()
		row.AddCell().SetString(a.CompanyName)
		row.AddCell().SetString(a.RegistrationID)
		row.AddCell().SetInt(a.FiscalYear)
		row.AddCell().SetString(string(a.PriorityTier))
		row.AddCell().SetInt(a.TotalScore)
		row.AddCell().SetInt(a.FinancingScore)
		row.AddCell().SetInt(a.ServicesScore)
		row.AddCell().SetInt(a.DocumentationScore)
		row.AddCell().SetInt(a.MaterialityScore)
		row.AddCell().SetInt(a.ComplexityScore)
		row.AddCell().SetBool(a.Indicators.HasICFinancing)
		row.AddCell().SetBool(a.Indicators.ThinCapitalisation)
		row.AddCell().SetBool(a.Indicators.RateAnomaly)
		row.AddCell().SetBool(a.Indicators.LocalFileRequired)
		row.AddCell().SetBool(a.Indicators.MasterFileRequired)
		row.AddCell().SetString(a.Narrative)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("export: wrote assessments",
		zap.String("path", path),
		zap.Int("rows", len(assessments)),
	)
	return nil
}
