// Package ingest parses filing batches from CSV and XLSX files for
// bulk import. Both formats share a header-mapped layout with columns
// company_name, registration_id, fiscal_year, currency, storage_path.
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/model"
)

// requiredColumns must be present in the header row of any batch file.
var requiredColumns = []string{"company_name", "registration_id", "fiscal_year"}

// columnMap resolves header names to indices, case-insensitively and
// ignoring surrounding whitespace.
func columnMap(header []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("ingest: missing required column %q", required)
		}
	}
	return col, nil
}

// rowToFiling converts a single data row into a Filing using the
// resolved column map. line is 1-based and used in error messages.
func rowToFiling(col map[string]int, row []string, line int) (model.Filing, error) {
	cell := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	year, err := strconv.Atoi(cell("fiscal_year"))
	if err != nil {
		return model.Filing{}, eris.Wrapf(err, "ingest: line %d: fiscal_year", line)
	}

	return model.Filing{
		CompanyName:    cell("company_name"),
		RegistrationID: cell("registration_id"),
		FiscalYear:     year,
		Currency:       cell("currency"),
		StoragePath:    cell("storage_path"),
	}, nil
}

// isBlank reports whether every cell in the row is empty; XLSX sheets
// routinely carry trailing blank rows.
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
