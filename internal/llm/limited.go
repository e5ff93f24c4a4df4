package llm

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// LimitOptions configures Limited.
type LimitOptions struct {
	RPM        int           // Requests per minute, 0 disables limiting
	Burst      int           // Bucket size
	MaxRetries int           // Retries on rate-limit responses
	BaseDelay  time.Duration // First backoff delay, doubled per retry
}

// Limited wraps a provider with a token bucket and retries rate-limited
// calls with exponential backoff.
type Limited struct {
	next       Provider
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

// NewLimited wraps next.
func NewLimited(next Provider, opts LimitOptions) *Limited {
	l := &Limited{
		next:       next,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}
	if opts.RPM > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(float64(opts.RPM)/60.0), burst)
	}
	if l.maxRetries < 0 {
		l.maxRetries = 0
	}
	if l.baseDelay <= 0 {
		l.baseDelay = defaultBaseDelay
	}
	return l
}

// Wrapper returns a Factory wrap function using opts.
func Wrapper(opts LimitOptions) func(Provider) Provider {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return func(p Provider) Provider {
		return NewLimited(p, opts)
	}
}

// Generate waits for a token, then calls the wrapped provider.
func (l *Limited) Generate(ctx context.Context, prompt string) (core.Response, error) {
	var lastErr error
	for i := 0; i <= l.maxRetries; i++ {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := l.next.Generate(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		if !isRateLimited(err) || i == l.maxRetries {
			return nil, err
		}

		lastErr = err
		delay := l.baseDelay * time.Duration(1<<i)
		logger.Warn("Model provider rate limited, backing off", "delay", delay.String(), "attempt", i+1, "max_retries", l.maxRetries)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// Model returns the wrapped provider's model name.
func (l *Limited) Model() string {
	return l.next.Model()
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource_exhausted")
}
