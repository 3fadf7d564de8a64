package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/monitoring"
)

var (
	statusLookback int
	statusAlert    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue and pipeline health",
	Long:  "Prints job queue counts, failure rate and store totals. With --alert, evaluates the monitoring thresholds and posts any triggered alerts to the configured webhook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusLookback)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Jobs (last %dh)\n", snap.LookbackHours)
		fmt.Fprintf(w, "  queued\t%d\n", snap.JobsQueued)
		fmt.Fprintf(w, "  processing\t%d\n", snap.JobsProcessing)
		fmt.Fprintf(w, "  succeeded\t%d\n", snap.JobsSucceeded)
		fmt.Fprintf(w, "  failed\t%d\n", snap.JobsFailed)
		fmt.Fprintf(w, "  failure rate\t%.1f%%\n", snap.FailureRate*100)
		fmt.Fprintf(w, "Store totals\n")
		fmt.Fprintf(w, "  filings\t%d\n", snap.Filings)
		fmt.Fprintf(w, "  analyses\t%d\n", snap.Analyses)
		if err := w.Flush(); err != nil {
			return err
		}

		if !statusAlert {
			return nil
		}
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if len(alerts) == 0 {
			zap.L().Info("no alerts triggered")
			return nil
		}
		sent := alerter.SendAlerts(ctx, alerts)
		zap.L().Info("alerts evaluated",
			zap.Int("triggered", len(alerts)),
			zap.Int("sent", sent),
		)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 24, "job stats window in hours (0 = all time)")
	statusCmd.Flags().BoolVar(&statusAlert, "alert", false, "evaluate thresholds and send webhook alerts")
	rootCmd.AddCommand(statusCmd)
}
