package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestParseCSV(t *testing.T) {
	filings, err := ParseCSV(strings.NewReader(`company_name,registration_id,fiscal_year,currency,storage_path
Alpha Finance S.à r.l.,B123456,2024,EUR,/data/b123456-2024.pdf
Beta Services S.A.,B654321,2023,,
`))
	require.NoError(t, err)
	require.Len(t, filings, 2)

	assert.Equal(t, "Alpha Finance S.à r.l.", filings[0].CompanyName)
	assert.Equal(t, "B123456", filings[0].RegistrationID)
	assert.Equal(t, 2024, filings[0].FiscalYear)
	assert.Equal(t, "/data/b123456-2024.pdf", filings[0].StoragePath)

	assert.Equal(t, 2023, filings[1].FiscalYear)
	assert.Empty(t, filings[1].Currency)
}

func TestParseCSVHeaderCaseInsensitive(t *testing.T) {
	filings, err := ParseCSV(strings.NewReader("Company_Name, Registration_ID ,FISCAL_YEAR\nAlpha,B1,2024\n"))
	require.NoError(t, err)
	require.Len(t, filings, 1)
	assert.Equal(t, "B1", filings[0].RegistrationID)
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("company_name,currency\nAlpha,EUR\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration_id")
}

func TestParseCSVBadYear(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("company_name,registration_id,fiscal_year\nAlpha,B1,twenty24\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fiscal_year")
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("company_name,registration_id,fiscal_year\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no filings")
}

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Filings")
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	path := filepath.Join(t.TempDir(), "filings.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestParseXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company_name", "registration_id", "fiscal_year", "currency", "storage_path"},
		{"Alpha Finance S.à r.l.", "B123456", "2024", "EUR", "/data/b123456-2024.pdf"},
		{"", "", ""}, // trailing blank row
		{"Beta Services S.A.", "B654321", "2023", "", ""},
	})

	filings, err := ParseXLSX(path)
	require.NoError(t, err)
	require.Len(t, filings, 2)

	assert.Equal(t, "Alpha Finance S.à r.l.", filings[0].CompanyName)
	assert.Equal(t, 2024, filings[0].FiscalYear)
	assert.Equal(t, "B654321", filings[1].RegistrationID)
}

func TestParseXLSXMissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"company_name", "currency"},
		{"Alpha", "EUR"},
	})

	_, err := ParseXLSX(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration_id")
}

func TestParseXLSXNoFile(t *testing.T) {
	_, err := ParseXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}
