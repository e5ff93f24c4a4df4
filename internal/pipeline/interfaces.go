package pipeline

import (
	"context"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/observability"
)

// ProviderSource hands out the model provider for a job. A configuration
// error here aborts the job before any section is dispatched.
type ProviderSource interface {
	Provider(ctx context.Context) (llm.Provider, error)
}

// ReportSaver stores an assembled report
type ReportSaver interface {
	Save(ctx context.Context, report *core.FinalReport) error
}

// EventTracker records product analytics for finished jobs
type EventTracker interface {
	TrackReportGenerated(ctx context.Context, ev observability.ReportEvent) error
}
