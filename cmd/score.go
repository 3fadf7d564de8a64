package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/risk"
	"github.com/sells-group/tp-screener/internal/store"
)

var (
	scoreMinScore  int
	scoreSave      bool
	scoreFactsPath string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "List scored companies ranked by review priority",
	Long:  "Collects the latest assessment per filing and prints the tier ranking. With --save (Postgres only), assessments are upserted into the assessments table for downstream reporting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("score"); err != nil {
			return err
		}

		if scoreFactsPath != "" {
			return scoreFactsFile(ctx, scoreFactsPath)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		assessments, err := collectAssessments(ctx, st, scoreMinScore)
		if err != nil {
			return err
		}
		if len(assessments) == 0 {
			fmt.Println("No assessments found. Run `tp-screener analyze --save` or the worker first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tSCORE\tCOMPANY\tREGISTRATION\tYEAR\tFLAGS")
		for _, a := range assessments {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\n",
				a.PriorityTier, a.TotalScore, a.CompanyName, a.RegistrationID,
				a.FiscalYear, indicatorSummary(a.Indicators))
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}

		if scoreSave {
			pg, ok := st.(*store.PostgresStore)
			if !ok {
				return eris.New("--save requires the postgres store driver")
			}
			hash := risk.ConfigHash(cfg.Risk)
			if err := risk.SaveAssessments(ctx, pg.Pool(), assessments, hash); err != nil {
				return err
			}
		}
		return nil
	},
}

// scoreFactsFile scores a single company from a JSON facts file, without
// touching the store. Useful for what-if runs against hand-edited inputs.
func scoreFactsFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	var in risk.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}

	a := risk.NewScorer(cfg.Risk, nil).Score(ctx, &in)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Company\t%s (%s, FY%d)\n", a.CompanyName, a.RegistrationID, a.FiscalYear)
	fmt.Fprintf(w, "Tier\t%s\n", a.PriorityTier)
	fmt.Fprintf(w, "Total score\t%d/100\n", a.TotalScore)
	fmt.Fprintf(w, "  financing\t%d\n", a.FinancingScore)
	fmt.Fprintf(w, "  services\t%d\n", a.ServicesScore)
	fmt.Fprintf(w, "  documentation\t%d\n", a.DocumentationScore)
	fmt.Fprintf(w, "  materiality\t%d\n", a.MaterialityScore)
	fmt.Fprintf(w, "  complexity\t%d\n", a.ComplexityScore)
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "flush table")
	}
	fmt.Println()
	fmt.Println(a.Narrative)
	return nil
}

// collectAssessments walks all filings and returns the latest assessment per
// filing, best score first.
func collectAssessments(ctx context.Context, st store.Store, minScore int) ([]model.Assessment, error) {
	var assessments []model.Assessment
	offset := 0
	const page = 200
	for {
		filings, err := st.ListFilings(ctx, store.FilingFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "list filings")
		}
		for _, f := range filings {
			rec, recErr := st.GetLatestAnalysis(ctx, f.ID)
			if recErr != nil {
				zap.L().Warn("skipping filing, analysis unreadable",
					zap.String("filing_id", f.ID), zap.Error(recErr))
				continue
			}
			if rec == nil || rec.Assessment == nil {
				continue
			}
			if rec.Assessment.TotalScore < minScore {
				continue
			}
			assessments = append(assessments, *rec.Assessment)
		}
		if len(filings) < page {
			break
		}
		offset += page
	}

	sort.Slice(assessments, func(i, j int) bool {
		if assessments[i].TotalScore != assessments[j].TotalScore {
			return assessments[i].TotalScore > assessments[j].TotalScore
		}
		return assessments[i].CompanyName < assessments[j].CompanyName
	})
	return assessments, nil
}

func indicatorSummary(ind model.RiskIndicators) string {
	flags := ""
	add := func(set bool, code string) {
		if !set {
			return
		}
		if flags != "" {
			flags += ","
		}
		flags += code
	}
	add(ind.HasICFinancing, "fin")
	add(ind.HasICServices, "svc")
	add(ind.HasRoyalties, "roy")
	add(ind.ThinCapitalisation, "thincap")
	add(ind.RateAnomaly, "rate")
	add(ind.LocalFileRequired, "localfile")
	add(ind.MasterFileRequired, "masterfile")
	if flags == "" {
		flags = "-"
	}
	return flags
}

func init() {
	scoreCmd.Flags().IntVar(&scoreMinScore, "min-score", 0, "only list assessments at or above this score")
	scoreCmd.Flags().StringVar(&scoreFactsPath, "facts", "", "score a single company from a JSON facts file instead of the store")
	scoreCmd.Flags().BoolVar(&scoreSave, "save", false, "upsert assessments into the assessments table (postgres)")
	rootCmd.AddCommand(scoreCmd)
}
