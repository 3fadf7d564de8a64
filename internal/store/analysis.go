package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/model"
)

// marshalAnalysis serializes the nullable analysis sections for storage.
func marshalAnalysis(rec *model.AnalysisRecord) (bs, pl, val, assess sql.NullString, err error) {
	if rec.BalanceSheet != nil {
		if bs, err = toNullJSON(rec.BalanceSheet, "balance sheet"); err != nil {
			return
		}
	}
	if rec.ProfitLoss != nil {
		if pl, err = toNullJSON(rec.ProfitLoss, "profit and loss"); err != nil {
			return
		}
	}
	if rec.Validation != nil {
		if val, err = toNullJSON(rec.Validation, "validation"); err != nil {
			return
		}
	}
	if rec.Assessment != nil {
		assess, err = toNullJSON(rec.Assessment, "assessment")
	}
	return
}

func toNullJSON(v any, what string) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, eris.Wrapf(err, "store: marshal %s", what)
	}
	return sql.NullString{Valid: true, String: string(data)}, nil
}

// noRows reports whether err is either driver's no-rows sentinel.
func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scannable) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var bs, pl, val, assess sql.NullString

	err := row.Scan(&rec.ID, &rec.FilingID, &bs, &pl, &val, &assess, &rec.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, err
		}
		return nil, eris.Wrap(err, "store: scan analysis")
	}

	if bs.Valid {
		rec.BalanceSheet = &model.BalanceSheetExtraction{}
		if err := json.Unmarshal([]byte(bs.String), rec.BalanceSheet); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal balance sheet")
		}
	}
	if pl.Valid {
		rec.ProfitLoss = &model.ProfitAndLossExtraction{}
		if err := json.Unmarshal([]byte(pl.String), rec.ProfitLoss); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal profit and loss")
		}
	}
	if val.Valid {
		rec.Validation = &model.ValidationResult{}
		if err := json.Unmarshal([]byte(val.String), rec.Validation); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal validation")
		}
	}
	if assess.Valid {
		rec.Assessment = &model.Assessment{}
		if err := json.Unmarshal([]byte(assess.String), rec.Assessment); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal assessment")
		}
	}
	return &rec, nil
}
