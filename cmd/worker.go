package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tp-screener/internal/monitoring"
	"github.com/sells-group/tp-screener/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the screening job worker",
	Long:  "Claims queued analysis jobs and runs the screening pipeline on each. Safe to run in multiple processes against the same database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := cfg.Validate("worker"); err != nil {
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

		p, err := buildPipeline()
		if err != nil {
			return err
		}

		// The health checker runs alongside the worker when a webhook
		// is configured.
		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		return worker.New(st, p, cfg.Worker).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
