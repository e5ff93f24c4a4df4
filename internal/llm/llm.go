// Package llm provides the model providers used to generate report sections.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

const (
	// DefaultGeminiModel is used when ai.gemini.model is empty.
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultOpenAIModel is used when ai.openai.model is empty.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultVertexLocation is used when the Vertex backend has no location set.
	DefaultVertexLocation = "us-central1"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendGeminiAPI = "gemini_api"
	BackendVertex    = "vertex"
)

// Configuration errors. These are fatal to a request and reported before any
// section work begins.
var (
	ErrMissingCredential   = errors.New("model provider credential is not configured")
	ErrMissingProject      = errors.New("model provider project is not configured")
	ErrMalformedCredential = errors.New("model provider credential is malformed")
	ErrUnknownProvider     = errors.New("unknown model provider")
)

// Provider generates one response per prompt. Implementations must be safe
// for concurrent use.
type Provider interface {
	Generate(ctx context.Context, prompt string) (core.Response, error)
	Model() string
}

// IsConfigError reports whether err is a provider configuration failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrMissingProject) ||
		errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrUnknownProvider)
}

// ValidateCredentials checks the selected provider's credentials without
// creating a client.
func ValidateCredentials(cfg config.AI) error {
	switch providerName(cfg) {
	case ProviderGemini:
		if cfg.Gemini.Backend == BackendVertex {
			if strings.TrimSpace(cfg.Gemini.Project) == "" {
				return fmt.Errorf("%w: set ai.gemini.project or GOOGLE_CLOUD_PROJECT", ErrMissingProject)
			}
			return nil
		}
		return checkAPIKey(cfg.Gemini.APIKey, "ai.gemini.api_key or GEMINI_API_KEY")
	case ProviderOpenAI:
		return checkAPIKey(cfg.OpenAI.APIKey, "ai.openai.api_key or OPENAI_API_KEY")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewProvider validates credentials and builds the configured provider.
func NewProvider(ctx context.Context, cfg config.AI) (Provider, error) {
	if err := ValidateCredentials(cfg); err != nil {
		return nil, err
	}
	switch providerName(cfg) {
	case ProviderOpenAI:
		return NewOpenAIProvider(ctx, cfg.OpenAI)
	default:
		return NewGeminiProvider(ctx, cfg.Gemini)
	}
}

func providerName(cfg config.AI) string {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		return ProviderGemini
	}
	return name
}

// checkAPIKey rejects empty keys, placeholders and keys containing whitespace.
func checkAPIKey(key, hint string) error {
	if key == "" {
		return fmt.Errorf("%w: set %s", ErrMissingCredential, hint)
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "your-openai-key", "YOUR_API_KEY",
		"PLACEHOLDER", "TODO", "CHANGE_ME",
	}
	for _, placeholder := range placeholders {
		if key == placeholder {
			return fmt.Errorf("%w: %s is a placeholder value", ErrMalformedCredential, hint)
		}
	}
	if strings.ContainsAny(key, " \t\r\n\"'") || len(key) < 8 {
		return fmt.Errorf("%w: check %s", ErrMalformedCredential, hint)
	}
	return nil
}

// Factory builds the provider on first use so that missing credentials
// surface per request rather than at startup. A failed build is retried on
// the next call.
type Factory struct {
	cfg   config.AI
	wrap  func(Provider) Provider
	build func(context.Context, config.AI) (Provider, error)

	mu       sync.Mutex
	provider Provider
}

// NewFactory creates a factory. wrap, when non-nil, decorates the built
// provider (rate limiting, retries).
func NewFactory(cfg config.AI, wrap func(Provider) Provider) *Factory {
	return &Factory{cfg: cfg, wrap: wrap, build: NewProvider}
}

// Provider returns the memoized provider, building it if needed.
func (f *Factory) Provider(ctx context.Context) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.provider != nil {
		return f.provider, nil
	}
	p, err := f.build(ctx, f.cfg)
	if err != nil {
		return nil, err
	}
	if f.wrap != nil {
		p = f.wrap(p)
	}
	f.provider = p
	return p, nil
}

// StaticFactory always returns the same provider. Used by tests and the CLI
// when a provider is injected directly.
type StaticFactory struct {
	P Provider
}

// Provider implements the pipeline's provider source.
func (s StaticFactory) Provider(context.Context) (Provider, error) {
	if s.P == nil {
		return nil, ErrMissingCredential
	}
	return s.P, nil
}
