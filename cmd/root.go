package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tp-screener",
	Short: "Transfer-pricing screening for Luxembourg annual accounts",
	Long:  "Extracts intercompany financials from statutory filings with verbatim provenance, cross-validates them against hallucination and consistency checks, and scores companies for transfer-pricing review priority.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
