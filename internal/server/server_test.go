package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/persistence"
	"github.com/karthiknish/profici-comp-sub000/internal/pipeline"
)

type fakeAnalyzer struct {
	got    core.AnalysisPayload
	result *pipeline.Result
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, payload core.AnalysisPayload) (*pipeline.Result, error) {
	f.got = payload
	return f.result, f.err
}

type fakeReports struct {
	reports map[string]*core.FinalReport
	list    []persistence.ReportSummary
	domain  string
	limit   int
	err     error
}

func (f *fakeReports) Get(ctx context.Context, id string) (*core.FinalReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persistence.ErrNotFound, id)
	}
	return r, nil
}

func (f *fakeReports) ListByDomain(ctx context.Context, domain string, limit int) ([]persistence.ReportSummary, error) {
	f.domain, f.limit = domain, limit
	return f.list, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(a Analyzer, reports ReportReader, db Pinger) *Server {
	return New(a, reports, db, config.Server{Host: "127.0.0.1", Port: 0, RequestTimeout: 5 * time.Second})
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyze_Success(t *testing.T) {
	body := []byte(`{"id":"rep-1","domain":"acme.co.uk"}`)
	analyzer := &fakeAnalyzer{result: &pipeline.Result{Body: body}}
	s := newTestServer(analyzer, nil, nil)

	rec := serve(s, http.MethodPost, "/api/analyze", `{"site":"acme.co.uk","competitors":["rival.com"],"report":{"domain":"acme.co.uk"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, string(body), rec.Body.String())
	assert.Equal(t, "acme.co.uk", analyzer.got.Site)
	assert.Equal(t, []string{"rival.com"}, analyzer.got.Competitors)
	require.NotNil(t, analyzer.got.Report)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestAnalyze_BadBody(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)

	rec := serve(s, http.MethodPost, "/api/analyze", `{"site":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec).Error)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid payload", pipeline.ErrInvalidPayload, http.StatusBadRequest, "Invalid analysis request"},
		{"missing credential", fmt.Errorf("failed to initialize model provider: %w", llm.ErrMissingCredential), http.StatusInternalServerError, "AI provider configuration error"},
		{"malformed credential", llm.ErrMalformedCredential, http.StatusInternalServerError, "AI provider configuration error"},
		{"serialization", fmt.Errorf("%w: unsupported value", pipeline.ErrSerialization), http.StatusInternalServerError, "Failed to serialize report"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Analysis failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAnalyzer{err: tt.err}, nil, nil)
			rec := serve(s, http.MethodPost, "/api/analyze", `{"site":"acme.co.uk"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.err.Error(), resp.Details)
		})
	}
}

func TestGetReport(t *testing.T) {
	reports := &fakeReports{reports: map[string]*core.FinalReport{
		"rep-1": {ID: "rep-1", Domain: "acme.co.uk"},
	}}
	s := newTestServer(&fakeAnalyzer{}, reports, nil)

	rec := serve(s, http.MethodGet, "/api/reports/rep-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got core.FinalReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "acme.co.uk", got.Domain)

	rec = serve(s, http.MethodGet, "/api/reports/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reports.err = errors.New("db down")
	rec = serve(s, http.MethodGet, "/api/reports/rep-1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListReports(t *testing.T) {
	reports := &fakeReports{list: []persistence.ReportSummary{{ID: "rep-1", Domain: "acme.co.uk"}}}
	s := newTestServer(&fakeAnalyzer{}, reports, nil)

	rec := serve(s, http.MethodGet, "/api/reports?domain=ACME.co.uk&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReportListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "acme.co.uk", reports.domain)
	assert.Equal(t, 5, reports.limit)

	rec = serve(s, http.MethodGet, "/api/reports?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_NotConfigured(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/api/reports/rep-1", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/api/reports", "").Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantCheck  string
	}{
		{"no database", nil, http.StatusOK, "not_configured"},
		{"healthy", fakePinger{}, http.StatusOK, "ok"},
		{"unhealthy", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAnalyzer{}, nil, tt.db)
			rec := serve(s, http.MethodGet, "/health", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCheck, resp.Checks["database"])
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}
