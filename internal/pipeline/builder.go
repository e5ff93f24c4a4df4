package pipeline

import (
	"fmt"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/firmographics"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/prompts"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	providers ProviderSource
	firmo     firmographics.Source
	compiler  prompts.Compiler
	saver     ReportSaver
	tracker   EventTracker
	config    *Config
}

// NewBuilder creates a new pipeline builder with default settings
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// FromSettings seeds a builder from loaded configuration: a lazily built,
// rate limited provider, the default prompt compiler and pipeline timings.
func FromSettings(cfg *config.Config) *Builder {
	wrap := llm.Wrapper(llm.LimitOptions{
		RPM:   cfg.Pipeline.RPM,
		Burst: cfg.Pipeline.Burst,
	})
	compiler := prompts.NewTemplateCompiler(prompts.Options{
		KeywordCount:       cfg.Pipeline.KeywordCount,
		ReferringDomainCap: cfg.Pipeline.ReferringDomainCap,
	})

	return NewBuilder().
		WithProviders(llm.NewFactory(cfg.AI, wrap)).
		WithCompiler(compiler).
		WithConfig(ConfigFromSettings(cfg.Pipeline, cfg.Database))
}

// WithProviders sets the provider source
func (b *Builder) WithProviders(providers ProviderSource) *Builder {
	b.providers = providers
	return b
}

// WithFirmographics sets the firmographic source
func (b *Builder) WithFirmographics(src firmographics.Source) *Builder {
	b.firmo = src
	return b
}

// WithCompiler sets the prompt compiler
func (b *Builder) WithCompiler(compiler prompts.Compiler) *Builder {
	b.compiler = compiler
	return b
}

// WithReportSaver enables background persistence
func (b *Builder) WithReportSaver(saver ReportSaver) *Builder {
	b.saver = saver
	return b
}

// WithTracker enables analytics events
func (b *Builder) WithTracker(tracker EventTracker) *Builder {
	b.tracker = tracker
	return b
}

// WithConfig sets the pipeline configuration
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build() (*Pipeline, error) {
	if b.providers == nil {
		return nil, fmt.Errorf("provider source is required")
	}
	return NewPipeline(b.providers, b.firmo, b.compiler, b.saver, b.tracker, b.config), nil
}
