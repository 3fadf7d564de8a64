package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for screening requests",
	Long:  "Accepts filings over HTTP and enqueues them for the worker. Run alongside one or more worker processes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := cfg.Validate("serve"); err != nil {
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

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /webhook/analyze", func(w http.ResponseWriter, r *http.Request) {
			handleAnalyze(r.Context(), st, w, r)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type analyzeRequest struct {
	CompanyName    string `json:"company_name"`
	RegistrationID string `json:"registration_id"`
	FiscalYear     int    `json:"fiscal_year"`
	Currency       string `json:"currency,omitempty"`
	StoragePath    string `json:"storage_path,omitempty"`
	Text           string `json:"text,omitempty"`
}

func handleAnalyze(ctx context.Context, st store.Store, w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.RegistrationID == "" || req.FiscalYear == 0 {
		http.Error(w, `{"error":"registration_id and fiscal_year are required"}`, http.StatusBadRequest)
		return
	}
	if req.StoragePath == "" && req.Text == "" {
		http.Error(w, `{"error":"storage_path or text is required"}`, http.StatusBadRequest)
		return
	}

	filing, err := st.CreateFiling(ctx, &model.Filing{
		CompanyName:    req.CompanyName,
		RegistrationID: req.RegistrationID,
		FiscalYear:     req.FiscalYear,
		Currency:       req.Currency,
		StoragePath:    req.StoragePath,
		Text:           req.Text,
	})
	if err != nil {
		zap.L().Error("webhook: create filing failed", zap.Error(err))
		http.Error(w, `{"error":"failed to store filing"}`, http.StatusInternalServerError)
		return
	}

	job, err := st.EnqueueJob(ctx, filing.ID)
	if err != nil {
		zap.L().Error("webhook: enqueue failed", zap.String("filing_id", filing.ID), zap.Error(err))
		http.Error(w, `{"error":"failed to enqueue job"}`, http.StatusInternalServerError)
		return
	}

	zap.L().Info("webhook: filing enqueued",
		zap.String("filing_id", filing.ID),
		zap.String("job_id", job.ID),
		zap.String("registration_id", filing.RegistrationID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "accepted",
		"filing_id": filing.ID,
		"job_id":    job.ID,
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
