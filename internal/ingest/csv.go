package ingest

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/model"
)

// ParseCSV reads a filing batch from a CSV stream. The first row is the
// header; rows may have variable field counts, in which case missing
// cells read as empty.
func ParseCSV(r io.Reader) ([]model.Filing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	col, err := columnMap(header)
	if err != nil {
		return nil, err
	}

	var filings []model.Filing
	line := 1
	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			return nil, eris.Wrapf(readErr, "ingest: read csv line %d", line)
		}
		if isBlank(row) {
			continue
		}
		f, convErr := rowToFiling(col, row, line)
		if convErr != nil {
			return nil, convErr
		}
		filings = append(filings, f)
	}
	if len(filings) == 0 {
		return nil, eris.New("ingest: file contains no filings")
	}
	return filings, nil
}
