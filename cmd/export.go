package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/export"
)

var (
	exportPath     string
	exportMinScore int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export assessments to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("score"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		assessments, err := collectAssessments(ctx, st, exportMinScore)
		if err != nil {
			return err
		}

		if err := export.WriteAssessmentsXLSX(exportPath, assessments); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("path", exportPath),
			zap.Int("assessments", len(assessments)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPath, "out", "assessments.xlsx", "output path")
	exportCmd.Flags().IntVar(&exportMinScore, "min-score", 0, "only export assessments at or above this score")
	rootCmd.AddCommand(exportCmd)
}
