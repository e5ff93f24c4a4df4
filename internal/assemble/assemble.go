// Package assemble merges decoded sections with the external report into the
// final report document.
package assemble

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/normalize"
)

// Input is everything one assembly needs.
type Input struct {
	JobID       string
	Decoded     map[core.SectionKey]core.DecodedSection
	PreResolved map[core.SectionKey]bool
	Payload     core.AnalysisPayload
	Report      *core.ExternalReport
	Context     *normalize.Context // Optional; derived from Payload and Report when nil
	Model       string
}

// Assembler builds FinalReports. It never fails: section errors are carried
// into the report as error markers.
type Assembler struct {
	now   func() time.Time
	newID func() string
}

// New creates an Assembler.
func New() *Assembler {
	return &Assembler{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// reconcileFunc produces the report slot for one section.
type reconcileFunc func(st *state, key core.SectionKey, d core.DecodedSection) any

// state carries cross-section values while reconciling.
type state struct {
	in            Input
	report        *core.ExternalReport
	keywordSource string
	distribution  map[string]any
	topKeywords   []any
}

// reconciliation maps sections to their fallback rules. Sections not listed
// use unwrapEnvelope.
var reconciliation = map[core.SectionKey]reconcileFunc{
	core.SectionKeywordRankings: reconcileKeywordRankings,
	core.SectionBacklinkProfile: reconcileBacklinkProfile,
}

// Assemble builds the final report.
func (a *Assembler) Assemble(in Input) *core.FinalReport {
	report := in.Report
	if report == nil {
		report = in.Payload.Report
	}
	if report == nil {
		report = &core.ExternalReport{}
	}
	nc := in.Context
	if nc == nil {
		nc = normalize.Build(in.Payload, report, nil)
	}

	log := logger.With("job_id", in.JobID)
	st := &state{in: in, report: report}

	out := &core.FinalReport{
		ID:           a.newID(),
		Domain:       nc.Domain,
		BusinessName: nc.BusinessName,
		Industry:     nc.Industry,
		Competitors:  nc.CompetitorLabel,
		GeneratedAt:  a.now().UTC(),
		Sections:     make(map[core.SectionKey]any, len(in.Decoded)),
		Meta: core.ReportMeta{
			JobID:         in.JobID,
			Model:         in.Model,
			SectionStatus: make(map[core.SectionKey]core.SectionState, len(in.Decoded)),
		},
	}

	for _, key := range sortedKeys(in.Decoded) {
		d := in.Decoded[key]
		rule, ok := reconciliation[key]
		if !ok {
			rule = defaultRule
		}
		out.Sections[key] = rule(st, key, d)

		switch {
		case d.IsError():
			out.Meta.SectionStatus[key] = core.SectionFailed
			out.Meta.FailedSections++
			log.Warn().Str("section", key.String()).Str("reason", d.Err).Msg("Section carried as error marker")
		case in.PreResolved[key]:
			out.Meta.SectionStatus[key] = core.SectionPreResolved
		default:
			out.Meta.SectionStatus[key] = core.SectionOK
		}
	}

	out.Metrics = core.DerivedMetrics{
		EstimatedMonthlyTrafficValue: TrafficValue(st.topKeywords),
		KeywordSource:                st.keywordSource,
	}
	out.Charts = core.Charts{
		KeywordDistribution: DistributionSeries(st.distribution),
		KeywordVolumes:      KeywordVolumeSeries(report, keywordVolumeLimit),
		TrafficTrend:        TrafficTrendSeries(report),
	}
	out.External = externalSummary(report)

	log.Info().
		Int("sections", len(out.Sections)).
		Int("failed_sections", out.Meta.FailedSections).
		Str("keyword_source", st.keywordSource).
		Msg("Report assembled")

	return out
}

func defaultRule(_ *state, key core.SectionKey, d core.DecodedSection) any {
	return unwrapEnvelope(d, key.Envelope())
}

// unwrapEnvelope returns decoded[envelope] when the model honored the
// requested wrapper, the whole value otherwise, and the error marker for
// failed sections.
func unwrapEnvelope(d core.DecodedSection, envelope string) any {
	if d.IsError() {
		return d.ErrorMarker()
	}
	if obj, ok := d.Value.(map[string]any); ok {
		if inner, ok := obj[envelope]; ok && inner != nil {
			return inner
		}
	}
	return d.Value
}

func reconcileBacklinkProfile(st *state, key core.SectionKey, d core.DecodedSection) any {
	profile := unwrapEnvelope(d, key.Envelope())
	obj, ok := profile.(map[string]any)
	if d.IsError() || !ok {
		return profile
	}

	quality, found := st.in.Decoded[core.SectionBacklinkQuality]
	if !found {
		return profile
	}

	merged := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		merged[k] = v
	}
	merged["qualitySummary"] = unwrapEnvelope(quality, core.SectionBacklinkQuality.Envelope())
	return merged
}

// externalSummary exposes the verbatim external figures renderers quote next
// to model narrative.
func externalSummary(r *core.ExternalReport) map[string]interface{} {
	return map[string]interface{}{
		"organicSearch": map[string]interface{}{
			"totalKeywords":    r.Organic.TotalKeywords,
			"estimatedTraffic": r.Organic.EstimatedTraffic,
			"trafficCost":      r.Organic.TrafficCost,
		},
		"backlinks": map[string]interface{}{
			"total":            r.Backlinks.Total,
			"referringDomains": len(r.Backlinks.ReferringDomains),
			"authorityScore":   r.Backlinks.AuthorityScore,
			"dofollowRatio":    r.Backlinks.DofollowRatio,
		},
		"mobile":    r.Mobile,
		"reviews":   r.Reviews,
		"local":     r.Local,
		"ecommerce": r.Ecommerce,
	}
}

func sortedKeys(m map[core.SectionKey]core.DecodedSection) []core.SectionKey {
	keys := make([]core.SectionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
