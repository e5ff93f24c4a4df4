// Package normalize derives the fixed prompt context for one analysis job
// from the inbound payload, the external report and the firmographic record.
package normalize

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

const (
	// UnknownIndustry is used when neither the report nor firmographics name one.
	UnknownIndustry = "Unknown Industry"
	// NoCompetitorsLabel is the competitor label when the caller supplied none.
	NoCompetitorsLabel = "No competitors specified"
	// DefaultTargetMarket applies when the payload leaves the market blank.
	DefaultTargetMarket = "UK"
	// DefaultReferringDomainCap bounds the referring domains sent for quality review.
	DefaultReferringDomainCap = 100
)

// Context is the normalized, read-only view of one job's inputs.
type Context struct {
	Site            string
	Domain          string
	BusinessName    string
	Industry        string
	TargetMarket    string
	Competitors     []string
	CompetitorLabel string
	IsEcommerce     bool
	Metrics         Metrics

	report *core.ExternalReport
	firmo  *core.Firmographics
}

// Metrics are pre-aggregated figures quoted across several prompts.
type Metrics struct {
	TotalKeywords        int
	Top10Keywords        int
	AveragePosition      float64
	EstimatedTraffic     float64
	TrafficCost          float64
	TotalBacklinks       int
	ReferringDomainCount int
	DofollowRatio        float64
	AuthorityScore       float64
	PageCount            int
	MobileFriendly       bool
	MobileScore          float64
	AverageRating        float64
	ReviewCount          int
	LocalCitations       int
	TechnologyCount      int
}

// Build derives a Context. Nil report or firmographics are treated as empty.
func Build(payload core.AnalysisPayload, report *core.ExternalReport, firmo *core.Firmographics) *Context {
	if report == nil {
		report = &core.ExternalReport{}
	}
	if firmo == nil {
		firmo = &core.Firmographics{}
	}

	nc := &Context{
		Site:         strings.TrimSpace(payload.Site),
		Domain:       Domain(payload),
		TargetMarket: firstNonEmpty(payload.TargetMarket, DefaultTargetMarket),
		IsEcommerce:  report.Ecommerce.IsEcommerce,
		report:       report,
		firmo:        firmo,
	}
	nc.BusinessName = firstNonEmpty(report.DetectedName, firmo.Name, nc.Site, nc.Domain)
	nc.Industry = firstNonEmpty(report.DetectedIndustry, firmo.Industry, UnknownIndustry)

	for _, c := range payload.Competitors {
		if c = strings.TrimSpace(c); c != "" {
			nc.Competitors = append(nc.Competitors, c)
		}
	}
	nc.CompetitorLabel = NoCompetitorsLabel
	if len(nc.Competitors) > 0 {
		nc.CompetitorLabel = strings.Join(nc.Competitors, ", ")
	}

	nc.Metrics = aggregate(report)
	return nc
}

// Domain resolves the job's domain: the report's domain when present,
// otherwise the host part of the site identifier without a www prefix.
func Domain(payload core.AnalysisPayload) string {
	if payload.Report != nil && strings.TrimSpace(payload.Report.Domain) != "" {
		return strings.ToLower(strings.TrimSpace(payload.Report.Domain))
	}
	return DomainFromSite(payload.Site)
}

// DomainFromSite extracts a bare lowercase host from a URL or domain string.
func DomainFromSite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	u, err := url.Parse(site)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func aggregate(r *core.ExternalReport) Metrics {
	m := Metrics{
		TotalKeywords:        r.Organic.TotalKeywords,
		EstimatedTraffic:     r.Organic.EstimatedTraffic,
		TrafficCost:          r.Organic.TrafficCost,
		TotalBacklinks:       r.Backlinks.Total,
		ReferringDomainCount: len(r.Backlinks.ReferringDomains),
		DofollowRatio:        r.Backlinks.DofollowRatio,
		AuthorityScore:       r.Backlinks.AuthorityScore,
		PageCount:            r.Pages.Total,
		MobileFriendly:       r.Mobile.MobileFriendly,
		MobileScore:          r.Mobile.PerformanceScore,
		AverageRating:        r.Reviews.AverageRating,
		ReviewCount:          r.Reviews.Count,
		LocalCitations:       r.Local.Citations,
		TechnologyCount:      len(r.Technologies),
	}
	if m.TotalKeywords == 0 {
		m.TotalKeywords = len(r.Organic.RankedKeywords)
	}
	if m.PageCount == 0 {
		m.PageCount = len(r.Pages.Items)
	}

	var positioned, sum int
	for _, kw := range r.Organic.RankedKeywords {
		if kw.Position <= 0 {
			continue
		}
		positioned++
		sum += kw.Position
		if kw.Position <= 10 {
			m.Top10Keywords++
		}
	}
	if positioned > 0 {
		m.AveragePosition = float64(sum) / float64(positioned)
	}
	return m
}

// Report returns the external report. Never nil.
func (nc *Context) Report() *core.ExternalReport { return nc.report }

// Firmographics returns the firmographic record. Never nil.
func (nc *Context) Firmographics() *core.Firmographics { return nc.firmo }

// TopFirmographicKeywords returns exactly n firmographic keywords, padded with
// placeholders when the record has fewer.
func (nc *Context) TopFirmographicKeywords(n int) []string {
	out := make([]string, 0, max(n, 0))
	for _, kw := range nc.firmo.Keywords {
		if len(out) == n {
			break
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	for len(out) < n {
		out = append(out, fmt.Sprintf("Keyword %d (not available)", len(out)+1))
	}
	return out
}

// TopReportKeywords returns exactly n ranked keywords ordered by search
// volume, padded with placeholder rows carrying zero metrics.
func (nc *Context) TopReportKeywords(n int) []core.RankedKeyword {
	ranked := append([]core.RankedKeyword(nil), nc.report.Organic.RankedKeywords...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlyQueries > ranked[j].MonthlyQueries
	})

	out := make([]core.RankedKeyword, 0, max(n, 0))
	for _, kw := range ranked {
		if len(out) == n {
			break
		}
		out = append(out, kw)
	}
	for len(out) < n {
		out = append(out, core.RankedKeyword{Term: fmt.Sprintf("Keyword %d (not available)", len(out)+1)})
	}
	return out
}

// ReferringDomains returns at most limit referring domains, strongest first.
// A non-positive limit falls back to DefaultReferringDomainCap. No padding.
func (nc *Context) ReferringDomains(limit int) []core.ReferringDomain {
	if limit <= 0 {
		limit = DefaultReferringDomainCap
	}
	domains := append([]core.ReferringDomain(nil), nc.report.Backlinks.ReferringDomains...)
	sort.SliceStable(domains, func(i, j int) bool {
		return domains[i].Authority > domains[j].Authority
	})
	if len(domains) > limit {
		domains = domains[:limit]
	}
	return domains
}

// TopPages returns exactly n pages ordered by organic traffic, padded with
// placeholder pages.
func (nc *Context) TopPages(n int) []core.Page {
	pages := append([]core.Page(nil), nc.report.Pages.Items...)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].OrganicTraffic > pages[j].OrganicTraffic
	})

	out := make([]core.Page, 0, max(n, 0))
	for _, p := range pages {
		if len(out) == n {
			break
		}
		out = append(out, p)
	}
	for len(out) < n {
		out = append(out, core.Page{Title: fmt.Sprintf("Page %d (not available)", len(out)+1)})
	}
	return out
}

// TechnologyNames lists detected technology names in report order.
func (nc *Context) TechnologyNames() []string {
	names := make([]string, 0, len(nc.report.Technologies))
	for _, t := range nc.report.Technologies {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}

// SocialProfiles returns the known social URLs keyed by network.
func (nc *Context) SocialProfiles() map[string]string {
	return nc.firmo.Social.Present()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
