// Package observability sends product analytics events for completed jobs
package observability

import (
	"context"
	"fmt"

	"github.com/posthog/posthog-go"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

// EventReportGenerated is captured once per assembled report
const EventReportGenerated = "report_generated"

// enqueuer is the subset of posthog.Client the tracker uses
type enqueuer interface {
	Enqueue(posthog.Message) error
	Close() error
}

// PostHogClient wraps the PostHog SDK for product analytics
type PostHogClient struct {
	client  enqueuer
	enabled bool
}

// EventProperties contains properties for an event
type EventProperties map[string]interface{}

// ReportEvent describes one generated report
type ReportEvent struct {
	ReportID       string
	JobID          string
	Domain         string
	Model          string
	Sections       int
	FailedSections int
	PreResolved    int
	KeywordSource  string
	DurationMillis int64
	EstimatedCost  float64
}

// NewPostHogClient creates an analytics client. A disabled config yields a
// client whose calls are no-ops.
func NewPostHogClient(cfg config.Analytics) (*PostHogClient, error) {
	if !cfg.Enabled {
		return &PostHogClient{enabled: false}, nil
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog enabled but missing API key")
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{
		Endpoint: cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &PostHogClient{
		client:  client,
		enabled: true,
	}, nil
}

// IsEnabled returns whether PostHog tracking is enabled
func (p *PostHogClient) IsEnabled() bool {
	return p != nil && p.enabled
}

// Capture sends an event to PostHog
func (p *PostHogClient) Capture(ctx context.Context, distinctID string, event string, properties EventProperties) error {
	if !p.IsEnabled() {
		return nil
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	return p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
}

// TrackReportGenerated records a finished analysis job, keyed by domain
func (p *PostHogClient) TrackReportGenerated(ctx context.Context, ev ReportEvent) error {
	distinctID := ev.Domain
	if distinctID == "" {
		distinctID = "system"
	}
	return p.Capture(ctx, distinctID, EventReportGenerated, EventProperties{
		"report_id":          ev.ReportID,
		"job_id":             ev.JobID,
		"domain":             ev.Domain,
		"model":              ev.Model,
		"sections":           ev.Sections,
		"failed_sections":    ev.FailedSections,
		"pre_resolved":       ev.PreResolved,
		"keyword_source":     ev.KeywordSource,
		"duration_ms":        ev.DurationMillis,
		"estimated_cost_usd": ev.EstimatedCost,
	})
}

// Close flushes queued events
func (p *PostHogClient) Close() error {
	if !p.IsEnabled() {
		return nil
	}
	if err := p.client.Close(); err != nil {
		logger.Warn("Failed to flush analytics events", "error", err.Error())
		return err
	}
	return nil
}
