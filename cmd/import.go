package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/ingest"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/store"
)

var (
	importPath    string
	importEnqueue bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import filings from CSV or XLSX",
	Long:  "Imports filing records from a CSV or XLSX file with columns company_name,registration_id,fiscal_year,currency,storage_path. On Postgres the import is a bulk upsert keyed on registration and year; with --enqueue each imported filing gets an analysis job.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filings, err := readFilings(importPath)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		// Postgres bulk-upserts through a staging COPY; other drivers
		// insert row by row.
		if pg, ok := st.(*store.PostgresStore); ok {
			n, importErr := pg.ImportFilings(ctx, filings)
			if importErr != nil {
				return eris.Wrap(importErr, "bulk import")
			}
			zap.L().Info("import complete",
				zap.Int64("rows", n),
				zap.String("file", importPath),
			)
		} else {
			for i := range filings {
				created, insertErr := st.CreateFiling(ctx, &filings[i])
				if insertErr != nil {
					return eris.Wrapf(insertErr, "import row %d", i+1)
				}
				filings[i] = *created
			}
			zap.L().Info("import complete",
				zap.Int("rows", len(filings)),
				zap.String("file", importPath),
			)
		}

		if !importEnqueue {
			return nil
		}
		enqueued := 0
		for _, f := range filings {
			target := f
			if target.ID == "" {
				// Bulk upsert does not report generated IDs; look the
				// filing up by registration and year.
				list, listErr := st.ListFilings(ctx, store.FilingFilter{
					RegistrationID: f.RegistrationID,
					FiscalYear:     f.FiscalYear,
					Limit:          1,
				})
				if listErr != nil || len(list) == 0 {
					zap.L().Warn("skipping enqueue, filing not found",
						zap.String("registration_id", f.RegistrationID))
					continue
				}
				target = list[0]
			}
			if _, enqErr := st.EnqueueJob(ctx, target.ID); enqErr != nil {
				return eris.Wrapf(enqErr, "enqueue filing %s", target.ID)
			}
			enqueued++
		}
		zap.L().Info("jobs enqueued", zap.Int("count", enqueued))
		return nil
	},
}

// readFilings dispatches on file extension: .xlsx goes through the
// workbook parser, everything else is treated as CSV.
func readFilings(path string) ([]model.Filing, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ingest.ParseXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ingest.ParseCSV(f)
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().BoolVar(&importEnqueue, "enqueue", false, "enqueue an analysis job per imported filing")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
