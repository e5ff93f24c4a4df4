// Package pipeline runs one analysis job end to end: normalize the inputs,
// compile section prompts, dispatch them, decode each response and assemble
// the final report.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karthiknish/profici-comp-sub000/internal/assemble"
	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/cost"
	"github.com/karthiknish/profici-comp-sub000/internal/decode"
	"github.com/karthiknish/profici-comp-sub000/internal/firmographics"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/normalize"
	"github.com/karthiknish/profici-comp-sub000/internal/observability"
	"github.com/karthiknish/profici-comp-sub000/internal/orchestrator"
	"github.com/karthiknish/profici-comp-sub000/internal/prompts"
)

var (
	// ErrInvalidPayload means the job names no site and carries no report domain
	ErrInvalidPayload = errors.New("payload must include a site or a report domain")

	// ErrSerialization means the assembled report could not be encoded
	ErrSerialization = errors.New("failed to serialize report")
)

// Config holds pipeline configuration
type Config struct {
	Plan           orchestrator.BatchPlan
	CallTimeout    time.Duration
	MaxConcurrency int
	RPM            int           // Used for the cost estimate's rate limit warning
	SaveTimeout    time.Duration // Deadline for the background report save
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Plan:        orchestrator.DefaultBatchPlan(),
		CallTimeout: 90 * time.Second,
		SaveTimeout: 15 * time.Second,
	}
}

// ConfigFromSettings maps loaded settings onto a pipeline Config
func ConfigFromSettings(p config.Pipeline, db config.Database) *Config {
	cfg := DefaultConfig()
	cfg.CallTimeout = p.CallTimeoutDuration()
	cfg.MaxConcurrency = p.MaxConcurrency
	cfg.RPM = p.RPM
	if d := db.SaveTimeoutDuration(); d > 0 {
		cfg.SaveTimeout = d
	}
	return cfg
}

// Pipeline runs analysis jobs. It is safe for concurrent use.
type Pipeline struct {
	providers ProviderSource
	firmo     firmographics.Source // Optional
	compiler  prompts.Compiler
	assembler *assemble.Assembler
	saver     ReportSaver  // Optional
	tracker   EventTracker // Optional

	config *Config
	saves  sync.WaitGroup
}

// NewPipeline creates a pipeline. firmo, saver and tracker may be nil.
func NewPipeline(
	providers ProviderSource,
	firmo firmographics.Source,
	compiler prompts.Compiler,
	saver ReportSaver,
	tracker EventTracker,
	config *Config,
) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if compiler == nil {
		compiler = prompts.NewTemplateCompiler(prompts.DefaultOptions())
	}

	return &Pipeline{
		providers: providers,
		firmo:     firmo,
		compiler:  compiler,
		assembler: assemble.New(),
		saver:     saver,
		tracker:   tracker,
		config:    config,
	}
}

// Result contains the output of one job
type Result struct {
	Report *core.FinalReport
	Body   []byte // Report encoded as JSON
	Cost   *cost.JobCostEstimate
	Stats  orchestrator.Stats
	Tiers  map[core.SectionKey]decode.Tier
}

// Analyze executes the full job. Errors are returned only for an invalid
// payload, provider configuration problems and report serialization; every
// per-section failure is carried inside the report.
func (p *Pipeline) Analyze(ctx context.Context, payload core.AnalysisPayload) (*Result, error) {
	start := time.Now()
	jobID := uuid.NewString()

	domain := normalize.Domain(payload)
	if domain == "" {
		return nil, ErrInvalidPayload
	}
	log := logger.With("job_id", jobID, "domain", domain)

	// Step 1: provider, before any section work
	provider, err := p.providers.Provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model provider: %w", err)
	}

	// Step 2: firmographics and context
	firmo := p.lookupFirmographics(ctx, domain, &log)
	nc := normalize.Build(payload, payload.Report, firmo)

	// Step 3: prompts and cost
	requests := p.compiler.Compile(nc)
	estimate := cost.EstimateJobCost(requests, provider.Model(), p.config.RPM)
	if estimate.RateLimitWarning != "" {
		log.Warn().Msg(estimate.RateLimitWarning)
	}
	log.Info().
		Int("sections", len(requests)).
		Int("provider_calls", estimate.ProviderCalls).
		Float64("estimated_cost_usd", estimate.TotalCost).
		Msg("Compiled section requests")

	// Step 4: dispatch
	orch := orchestrator.New(provider, p.config.Plan, orchestrator.Options{
		CallTimeout:    p.config.CallTimeout,
		MaxConcurrency: p.config.MaxConcurrency,
	})
	outcomes, stats := orch.Run(ctx, requests)

	// Step 5: decode
	decoded := make(map[core.SectionKey]core.DecodedSection, len(outcomes))
	preResolved := make(map[core.SectionKey]bool)
	tiers := make(map[core.SectionKey]decode.Tier, len(outcomes))
	for key, outcome := range outcomes {
		d, tier := decode.SectionWithTier(outcome, string(key))
		decoded[key] = d
		tiers[key] = tier
		if outcome.PreResolved {
			preResolved[key] = true
		}
		if tier != decode.TierDirect {
			log.Debug().Str("section", string(key)).Str("tier", tier.String()).Msg("Section needed recovery")
		}
	}

	// Step 6: assemble
	report := p.assembler.Assemble(assemble.Input{
		JobID:       jobID,
		Decoded:     decoded,
		PreResolved: preResolved,
		Payload:     payload,
		Report:      payload.Report,
		Context:     nc,
		Model:       provider.Model(),
	})
	report.Meta.DurationMillis = time.Since(start).Milliseconds()
	report.Meta.EstimatedCost = estimate.TotalCost

	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	log.Info().
		Str("report_id", report.ID).
		Int("failed_sections", report.Meta.FailedSections).
		Int64("duration_ms", report.Meta.DurationMillis).
		Msg("Analysis job completed")

	// Step 7: side effects
	p.persist(report)
	p.track(ctx, report, len(preResolved))

	return &Result{
		Report: report,
		Body:   body,
		Cost:   estimate,
		Stats:  stats,
		Tiers:  tiers,
	}, nil
}

// Wait blocks until background saves have finished
func (p *Pipeline) Wait() {
	p.saves.Wait()
}

func (p *Pipeline) lookupFirmographics(ctx context.Context, domain string, log *zerolog.Logger) *core.Firmographics {
	if p.firmo == nil {
		return nil
	}
	record, err := p.firmo.Lookup(ctx, domain)
	if err != nil {
		log.Warn().Err(err).Str("source", p.firmo.Name()).Msg("Firmographics lookup failed, continuing without it")
		return nil
	}
	return record
}

// persist saves the report in the background. The caller's request may
// finish first, so the save runs on its own deadline.
func (p *Pipeline) persist(report *core.FinalReport) {
	if p.saver == nil {
		return
	}
	p.saves.Add(1)
	go func() {
		defer p.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.config.SaveTimeout)
		defer cancel()
		if err := p.saver.Save(ctx, report); err != nil {
			logger.Error("Failed to save report", err, "report_id", report.ID, "job_id", report.Meta.JobID)
			return
		}
		logger.Debug("Report saved", "report_id", report.ID)
	}()
}

func (p *Pipeline) track(ctx context.Context, report *core.FinalReport, preResolved int) {
	if p.tracker == nil {
		return
	}
	err := p.tracker.TrackReportGenerated(ctx, observability.ReportEvent{
		ReportID:       report.ID,
		JobID:          report.Meta.JobID,
		Domain:         report.Domain,
		Model:          report.Meta.Model,
		Sections:       len(report.Sections),
		FailedSections: report.Meta.FailedSections,
		PreResolved:    preResolved,
		KeywordSource:  report.Metrics.KeywordSource,
		DurationMillis: report.Meta.DurationMillis,
		EstimatedCost:  report.Meta.EstimatedCost,
	})
	if err != nil {
		logger.Warn("Failed to track report event", "error", err.Error())
	}
}
