// Package orchestrator dispatches one model call per report section in two
// ordered, internally concurrent batches and settles every call to an outcome.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

// BatchPlan names the two dispatch phases. The secondary batch starts only
// after every primary call has settled. No secondary prompt reads a primary
// result; the split only limits simultaneous load on the provider.
type BatchPlan struct {
	Primary   []core.SectionKey
	Secondary []core.SectionKey
}

// DefaultBatchPlan returns the standard content/SEO then business split.
func DefaultBatchPlan() BatchPlan {
	return BatchPlan{
		Primary: []core.SectionKey{
			core.SectionExecutiveSummary,
			core.SectionKeywordRankings,
			core.SectionBacklinkProfile,
			core.SectionBacklinkQuality,
			core.SectionTechnicalSeo,
			core.SectionContentStrategy,
			core.SectionLocalSeo,
			core.SectionMobilePerformance,
			core.SectionEcommerceSeo,
			core.SectionSocialMedia,
			core.SectionReviews,
		},
		Secondary: []core.SectionKey{
			core.SectionCompetitor,
			core.SectionMarketPotential,
			core.SectionMarketCap,
			core.SectionRecommendations,
			core.SectionTrends,
			core.SectionSwotAnalysis,
		},
	}
}

// Batches splits a request set along the plan. Requested keys missing from
// the plan join the secondary batch in sorted order; planned keys that were
// not requested are dropped.
func (p BatchPlan) Batches(requests map[core.SectionKey]core.SectionRequest) [][]core.SectionKey {
	planned := make(map[core.SectionKey]bool, len(p.Primary)+len(p.Secondary))
	pick := func(keys []core.SectionKey) []core.SectionKey {
		var out []core.SectionKey
		for _, k := range keys {
			if _, ok := requests[k]; ok && !planned[k] {
				out = append(out, k)
			}
			planned[k] = true
		}
		return out
	}

	primary := pick(p.Primary)
	secondary := pick(p.Secondary)

	var extra []core.SectionKey
	for k := range requests {
		if !planned[k] {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	secondary = append(secondary, extra...)

	return [][]core.SectionKey{primary, secondary}
}

// Options tunes dispatch.
type Options struct {
	CallTimeout    time.Duration // Per-call deadline, 0 disables it
	MaxConcurrency int           // Calls in flight per batch, 0 is unbounded
}

// Orchestrator runs section requests against a provider.
type Orchestrator struct {
	provider llm.Provider
	plan     BatchPlan
	opts     Options
}

// New creates an orchestrator.
func New(provider llm.Provider, plan BatchPlan, opts Options) *Orchestrator {
	return &Orchestrator{provider: provider, plan: plan, opts: opts}
}

// Stats summarizes one run.
type Stats struct {
	Dispatched  int
	PreResolved int
	Rejected    int
	Duration    time.Duration
}

// Run dispatches every request and returns exactly one outcome per request
// key. Provider failures, timeouts and panics become rejected outcomes; Run
// itself never fails.
func (o *Orchestrator) Run(ctx context.Context, requests map[core.SectionKey]core.SectionRequest) (map[core.SectionKey]core.SectionOutcome, Stats) {
	start := time.Now()
	outcomes := make(map[core.SectionKey]core.SectionOutcome, len(requests))
	var stats Stats
	var mu sync.Mutex

	for i, batch := range o.plan.Batches(requests) {
		if len(batch) == 0 {
			continue
		}
		logger.Debug("Dispatching section batch", "batch", i+1, "sections", len(batch))

		g := new(errgroup.Group)
		if o.opts.MaxConcurrency > 0 {
			g.SetLimit(o.opts.MaxConcurrency)
		}

		for _, key := range batch {
			req := requests[key]
			if req.Payload.IsPreResolved() {
				out := core.Fulfilled(core.LiteralResponse{Value: req.Payload.Literal})
				out.PreResolved = true
				mu.Lock()
				outcomes[key] = out
				stats.PreResolved++
				mu.Unlock()
				continue
			}

			g.Go(func() error {
				out := o.call(ctx, key, req.Payload.Prompt)
				mu.Lock()
				outcomes[key] = out
				stats.Dispatched++
				if out.Status == core.StatusRejected {
					stats.Rejected++
				}
				mu.Unlock()
				return nil
			})
		}

		// Barrier: the next batch waits for every call in this one to settle.
		_ = g.Wait()
	}

	stats.Duration = time.Since(start)
	return outcomes, stats
}

type callResult struct {
	resp core.Response
	err  error
}

// call runs one provider call under the per-call deadline. Generate runs on
// its own goroutine so a provider that ignores ctx still settles at the
// deadline; its result is discarded when it finally returns.
func (o *Orchestrator) call(ctx context.Context, key core.SectionKey, prompt string) core.SectionOutcome {
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}

	started := time.Now()
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Model provider panicked", fmt.Errorf("%v", r), "section", key.String())
				done <- callResult{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		resp, err := o.provider.Generate(ctx, prompt)
		done <- callResult{resp: resp, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = callResult{err: ctx.Err()}
	}

	if res.err != nil {
		err := res.err
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("call timed out after %s: %w", o.opts.CallTimeout, err)
		}
		logger.Warn("Section call failed", "section", key.String(), "error", err.Error(), "elapsed_ms", time.Since(started).Milliseconds())
		return core.Rejected(err)
	}
	return core.Fulfilled(res.resp)
}
