package main

import (
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/pipeline"
)

var (
	analyzeCompany      string
	analyzeRegistration string
	analyzeYear         int
	analyzeCurrency     string
	analyzeSave         bool
	analyzeParallel     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <filing.pdf> [more.pdf ...]",
	Short: "Screen one or more annual-accounts filings",
	Long:  "Runs the full screening pipeline on each filing and prints the reviewer report. With --save, filings and results are persisted to the store.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		p, err := buildPipeline()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if analyzeSave {
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		// Company metadata flags apply to a single filing only; batch runs
		// carry identification inside each document.
		if len(args) > 1 && (analyzeCompany != "" || analyzeRegistration != "") {
			return eris.New("company flags are only valid with a single filing")
		}

		var mu sync.Mutex
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(analyzeParallel)
		for _, path := range args {
			g.Go(func() error {
				filing := &model.Filing{
					CompanyName:    analyzeCompany,
					RegistrationID: analyzeRegistration,
					FiscalYear:     analyzeYear,
					Currency:       analyzeCurrency,
					StoragePath:    path,
				}

				res, runErr := p.Run(gCtx, filing, pipeline.CompanyInput{
					Context: model.CompanyValidationContext{
						Name:           filing.CompanyName,
						RegistrationID: filing.RegistrationID,
						Currency:       filing.Currency,
					},
				})
				if runErr != nil {
					return eris.Wrapf(runErr, "screen %s", path)
				}

				mu.Lock()
				fmt.Println(res.Report)
				mu.Unlock()

				if analyzeSave {
					if saveErr := saveResult(gCtx, st, res); saveErr != nil {
						return saveErr
					}
				}
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "company name")
	analyzeCmd.Flags().StringVar(&analyzeRegistration, "registration", "", "RCS registration number (e.g. B123456)")
	analyzeCmd.Flags().IntVar(&analyzeYear, "year", 0, "fiscal year")
	analyzeCmd.Flags().StringVar(&analyzeCurrency, "currency", "EUR", "filing currency")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist filing and results to the store")
	analyzeCmd.Flags().IntVar(&analyzeParallel, "parallel", 2, "filings screened concurrently")
	rootCmd.AddCommand(analyzeCmd)
}
