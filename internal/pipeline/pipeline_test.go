package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/observability"
)

type fakeProvider struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (core.Response, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, errors.New("model unavailable")
	}
	return core.TextResponse("```json\n{\"summary\": \"fine\"}\n```"), nil
}

func (f *fakeProvider) Model() string { return "gemini-2.0-flash" }

type fakeFirmo struct {
	calls  int
	record *core.Firmographics
	err    error
}

func (f *fakeFirmo) Lookup(ctx context.Context, domain string) (*core.Firmographics, error) {
	f.calls++
	return f.record, f.err
}

func (f *fakeFirmo) Name() string { return "fake" }

type fakeSaver struct {
	mu      sync.Mutex
	reports []*core.FinalReport
	err     error
}

func (f *fakeSaver) Save(ctx context.Context, report *core.FinalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("save without deadline")
	}
	f.reports = append(f.reports, report)
	return f.err
}

type fakeTracker struct {
	events []observability.ReportEvent
}

func (f *fakeTracker) TrackReportGenerated(ctx context.Context, ev observability.ReportEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func samplePayload() core.AnalysisPayload {
	return core.AnalysisPayload{
		Site:        "https://www.acme.co.uk",
		Competitors: []string{"widgets.com"},
		Report: &core.ExternalReport{
			Domain: "acme.co.uk",
			Organic: core.OrganicSearch{
				TotalKeywords: 2,
				RankedKeywords: []core.RankedKeyword{
					{Term: "widgets", Position: 1, MonthlyQueries: 1000, CPC: 2.0},
					{Term: "cheap widgets", Position: 11, MonthlyQueries: 500, CPC: 1.0},
				},
			},
		},
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.CallTimeout = time.Second
	cfg.SaveTimeout = time.Second
	return cfg
}

func TestAnalyze(t *testing.T) {
	provider := &fakeProvider{}
	firmo := &fakeFirmo{record: &core.Firmographics{Name: "Acme Widgets", Industry: "Manufacturing"}}
	saver := &fakeSaver{}
	tracker := &fakeTracker{}

	p := NewPipeline(llm.StaticFactory{P: provider}, firmo, nil, saver, tracker, testConfig())

	result, err := p.Analyze(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	p.Wait()

	report := result.Report
	if len(report.Sections) != len(core.AllSections) {
		t.Errorf("Expected %d sections, got %d", len(core.AllSections), len(report.Sections))
	}
	if report.Meta.FailedSections != 0 {
		t.Errorf("Expected no failed sections, got %d", report.Meta.FailedSections)
	}
	if report.Meta.SectionStatus[core.SectionEcommerceSeo] != core.SectionPreResolved {
		t.Errorf("Expected ecommerceSeo to be pre-resolved, got %q", report.Meta.SectionStatus[core.SectionEcommerceSeo])
	}
	if got := int(provider.calls.Load()); got != len(core.AllSections)-1 {
		t.Errorf("Expected %d provider calls, got %d", len(core.AllSections)-1, got)
	}
	if report.Industry != "Manufacturing" || firmo.calls != 1 {
		t.Errorf("Expected firmographic industry, got %q (calls=%d)", report.Industry, firmo.calls)
	}
	if report.Meta.Model != "gemini-2.0-flash" || report.Meta.EstimatedCost <= 0 {
		t.Errorf("Unexpected meta %+v", report.Meta)
	}
	if result.Cost == nil || result.Cost.ProviderCalls != len(core.AllSections)-1 {
		t.Errorf("Unexpected cost estimate %+v", result.Cost)
	}

	// The model returned no topKeywords, so valuation uses the external rows.
	if v := report.Metrics.EstimatedMonthlyTrafficValue; v == nil || *v != 563 {
		t.Errorf("Expected traffic value 563, got %v", v)
	}

	var decoded map[string]any
	if err := json.Unmarshal(result.Body, &decoded); err != nil {
		t.Fatalf("Body is not JSON: %v", err)
	}
	if decoded["id"] != report.ID {
		t.Errorf("Body id %v does not match report %s", decoded["id"], report.ID)
	}

	if len(saver.reports) != 1 || saver.reports[0] != report {
		t.Errorf("Expected the report to be saved once, got %d", len(saver.reports))
	}
	if len(tracker.events) != 1 || tracker.events[0].Domain != "acme.co.uk" || tracker.events[0].PreResolved != 1 {
		t.Errorf("Unexpected analytics events %+v", tracker.events)
	}
}

func TestAnalyze_ConfigErrorBeforeSectionWork(t *testing.T) {
	firmo := &fakeFirmo{}
	saver := &fakeSaver{}
	p := NewPipeline(llm.StaticFactory{}, firmo, nil, saver, nil, testConfig())

	_, err := p.Analyze(context.Background(), samplePayload())
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Fatalf("Expected missing credential error, got %v", err)
	}
	if !llm.IsConfigError(err) {
		t.Error("Expected a configuration error")
	}
	p.Wait()
	if firmo.calls != 0 || len(saver.reports) != 0 {
		t.Errorf("No work expected after a config error: firmo=%d saves=%d", firmo.calls, len(saver.reports))
	}
}

func TestAnalyze_InvalidPayload(t *testing.T) {
	p := NewPipeline(llm.StaticFactory{P: &fakeProvider{}}, nil, nil, nil, nil, testConfig())

	if _, err := p.Analyze(context.Background(), core.AnalysisPayload{Site: "   "}); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected ErrInvalidPayload, got %v", err)
	}
}

func TestAnalyze_ProviderFailuresStayInReport(t *testing.T) {
	provider := &fakeProvider{fail: true}
	p := NewPipeline(llm.StaticFactory{P: provider}, nil, nil, nil, nil, testConfig())

	result, err := p.Analyze(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Section failures must not fail the job: %v", err)
	}

	report := result.Report
	if len(report.Sections) != len(core.AllSections) {
		t.Errorf("Expected every section present, got %d", len(report.Sections))
	}
	if report.Meta.FailedSections != len(core.AllSections)-1 {
		t.Errorf("Expected %d failed sections, got %d", len(core.AllSections)-1, report.Meta.FailedSections)
	}

	marker, ok := report.Sections[core.SectionTrends].(map[string]any)
	if !ok {
		t.Fatalf("Expected error marker, got %T", report.Sections[core.SectionTrends])
	}
	if msg, _ := marker["error"].(string); !strings.Contains(msg, "model unavailable") {
		t.Errorf("Error marker should carry the reason, got %q", msg)
	}
	if report.Metrics.KeywordSource != "none" {
		t.Errorf("Expected no keyword source, got %q", report.Metrics.KeywordSource)
	}
}

func TestAnalyze_FirmographicsErrorIsNotFatal(t *testing.T) {
	firmo := &fakeFirmo{err: errors.New("enrichment down")}
	p := NewPipeline(llm.StaticFactory{P: &fakeProvider{}}, firmo, nil, nil, nil, testConfig())

	result, err := p.Analyze(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Report.BusinessName != "https://www.acme.co.uk" {
		t.Errorf("Expected site fallback for business name, got %q", result.Report.BusinessName)
	}
}

func TestAnalyze_SaveErrorIsSwallowed(t *testing.T) {
	saver := &fakeSaver{err: errors.New("db down")}
	p := NewPipeline(llm.StaticFactory{P: &fakeProvider{}}, nil, nil, saver, nil, testConfig())

	if _, err := p.Analyze(context.Background(), samplePayload()); err != nil {
		t.Fatalf("Save failures must not surface: %v", err)
	}
	p.Wait()
	if len(saver.reports) != 1 {
		t.Errorf("Expected one save attempt, got %d", len(saver.reports))
	}
}

func TestBuilder(t *testing.T) {
	if _, err := NewBuilder().Build(); err == nil {
		t.Error("Expected error without provider source")
	}

	cfg := &config.Config{
		Pipeline: config.Pipeline{CallTimeout: "30s", MaxConcurrency: 4, RPM: 60},
		Database: config.Database{SaveTimeout: "5s"},
	}
	b := FromSettings(cfg)
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.config.CallTimeout != 30*time.Second || p.config.MaxConcurrency != 4 || p.config.SaveTimeout != 5*time.Second {
		t.Errorf("Unexpected config %+v", p.config)
	}
	if len(p.config.Plan.Primary) == 0 {
		t.Error("Expected default batch plan")
	}
}
