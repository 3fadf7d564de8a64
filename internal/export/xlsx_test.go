package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tp-screener/internal/model"
)

func TestWriteAssessmentsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assessments.xlsx")

	assessments := []model.Assessment{
		{
			CompanyName:    "Alpha Finance S.à r.l.",
			RegistrationID: "B123456",
			FiscalYear:     2024,
			PriorityTier:   model.TierA,
			TotalScore:     81,
			FinancingScore: 85,
			Indicators: model.RiskIndicators{
				HasICFinancing:     true,
				MasterFileRequired: true,
			},
			Narrative: "High-priority intercompany financing profile.",
		},
		{
			CompanyName:    "Beta Services S.A.",
			RegistrationID: "B654321",
			FiscalYear:     2024,
			PriorityTier:   model.TierC,
			TotalScore:     12,
		},
	}

	require.NoError(t, WriteAssessmentsXLSX(path, assessments))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Assessments", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Company", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Alpha Finance S.à r.l.", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "A", sheet.Rows[1].Cells[3].String())
	score, err := sheet.Rows[1].Cells[4].Int()
	require.NoError(t, err)
	assert.Equal(t, 81, score)
	assert.Equal(t, "Beta Services S.A.", sheet.Rows[2].Cells[0].String())
}

func TestWriteAssessmentsXLSXEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteAssessmentsXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1)
}
