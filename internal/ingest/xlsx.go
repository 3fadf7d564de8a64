package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tp-screener/internal/model"
)

// ParseXLSX reads a filing batch from the first sheet of an XLSX
// workbook. The first row is the header; blank rows are skipped.
func ParseXLSX(path string) ([]model.Filing, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s: sheet %q is empty", path, sheet.Name)
	}

	col, err := columnMap(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var filings []model.Filing
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		filing, convErr := rowToFiling(col, cells, i+2)
		if convErr != nil {
			return nil, convErr
		}
		filings = append(filings, filing)
	}
	if len(filings) == 0 {
		return nil, eris.New("ingest: file contains no filings")
	}
	return filings, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
