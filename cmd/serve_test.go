package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tp-screener/internal/config"
	"github.com/sells-group/tp-screener/internal/model"
	"github.com/sells-group/tp-screener/internal/store"
)

func newServeStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), config.StoreConfig{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func postAnalyze(t *testing.T, st store.Store, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handleAnalyze(req.Context(), st, rec, req)
	return rec
}

func TestHandleAnalyzeEnqueues(t *testing.T) {
	st := newServeStore(t)

	rec := postAnalyze(t, st, `{
		"company_name": "Alpha Finance S.à r.l.",
		"registration_id": "B123456",
		"fiscal_year": 2024,
		"text": "BILAN"
	}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	require.NotEmpty(t, resp["filing_id"])
	require.NotEmpty(t, resp["job_id"])

	job, err := st.GetJob(context.Background(), resp["job_id"])
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, resp["filing_id"], job.FilingID)
}

func TestHandleAnalyzeValidation(t *testing.T) {
	st := newServeStore(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing registration", `{"fiscal_year": 2024, "text": "BILAN"}`},
		{"missing year", `{"registration_id": "B1", "text": "BILAN"}`},
		{"no content", `{"registration_id": "B1", "fiscal_year": 2024}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAnalyze(t, st, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
