package core

import "time"

// FinalReport is the assembled output handed to persistence and rendering.
// Sections holds one entry per requested SectionKey, either reconciled
// content or an {"error": ...} marker.
type FinalReport struct {
	ID           string                 `json:"id"`
	Domain       string                 `json:"domain"`
	BusinessName string                 `json:"businessName"`
	Industry     string                 `json:"industry"`
	Competitors  string                 `json:"competitors"`
	GeneratedAt  time.Time              `json:"generatedAt"`
	Sections     map[SectionKey]any     `json:"sections"`
	Metrics      DerivedMetrics         `json:"metrics"`
	Charts       Charts                 `json:"charts"`
	Meta         ReportMeta             `json:"meta"`
	External     map[string]interface{} `json:"external,omitempty"` // Verbatim slices of the external report used by renderers
}

// DerivedMetrics are computed by the assembler, never requested from the model.
type DerivedMetrics struct {
	EstimatedMonthlyTrafficValue *int64 `json:"estimatedMonthlyTrafficValue"`
	KeywordSource                string `json:"keywordSource"` // model or external
}

// ChartPoint is one entry of a chart series.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// KeywordVolumePoint is one keyword bar of the external keyword chart.
type KeywordVolumePoint struct {
	Keyword  string `json:"keyword"`
	Volume   int    `json:"volume"`
	Position int    `json:"position"`
}

// Charts carries series for visual artifacts. Distribution is model-sourced;
// KeywordVolumes and TrafficTrend are external-sourced.
type Charts struct {
	KeywordDistribution []ChartPoint         `json:"keywordDistribution"`
	KeywordVolumes      []KeywordVolumePoint `json:"keywordVolumes"`
	TrafficTrend        []ChartPoint         `json:"trafficTrend"`
}

// SectionState summarizes how one section was produced.
type SectionState string

const (
	SectionOK          SectionState = "ok"
	SectionFailed      SectionState = "error"
	SectionPreResolved SectionState = "preResolved"
)

// ReportMeta carries job bookkeeping.
type ReportMeta struct {
	JobID          string                      `json:"jobId"`
	Model          string                      `json:"model"`
	DurationMillis int64                       `json:"durationMs"`
	SectionStatus  map[SectionKey]SectionState `json:"sectionStatus"`
	FailedSections int                         `json:"failedSections"`
	EstimatedCost  float64                     `json:"estimatedCostUsd"`
}
