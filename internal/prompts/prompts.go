// Package prompts compiles one model request per report section from a
// normalized job context.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/normalize"
)

// Compiler turns a normalized context into the job's section requests.
type Compiler interface {
	Compile(nc *normalize.Context) map[core.SectionKey]core.SectionRequest
}

// Options tunes how much external data is quoted into prompts.
type Options struct {
	KeywordCount       int // Report and firmographic keywords quoted per prompt
	PageCount          int // Top pages quoted in technical and content prompts
	ReferringDomainCap int // Referring domains sent for the quality review
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		KeywordCount:       20,
		PageCount:          10,
		ReferringDomainCap: normalize.DefaultReferringDomainCap,
	}
}

// TemplateCompiler renders the built-in section templates.
type TemplateCompiler struct {
	opts Options
}

// NewTemplateCompiler creates a compiler. Zero option fields take defaults.
func NewTemplateCompiler(opts Options) *TemplateCompiler {
	def := DefaultOptions()
	if opts.KeywordCount <= 0 {
		opts.KeywordCount = def.KeywordCount
	}
	if opts.PageCount <= 0 {
		opts.PageCount = def.PageCount
	}
	if opts.ReferringDomainCap <= 0 {
		opts.ReferringDomainCap = def.ReferringDomainCap
	}
	return &TemplateCompiler{opts: opts}
}

// Compile builds a request for every known section. ecommerceSeo is
// pre-resolved with the not-applicable literal when the site has no store.
func (c *TemplateCompiler) Compile(nc *normalize.Context) map[core.SectionKey]core.SectionRequest {
	requests := make(map[core.SectionKey]core.SectionRequest, len(core.AllSections))
	for _, key := range core.AllSections {
		var payload core.PromptPayload
		if key == core.SectionEcommerceSeo && !nc.IsEcommerce {
			payload = core.PreResolved(core.EcommerceNotApplicable())
		} else {
			payload = core.PromptText(c.render(key, nc))
		}
		requests[key] = core.SectionRequest{Key: key, Payload: payload}
	}
	return requests
}

func (c *TemplateCompiler) render(key core.SectionKey, nc *normalize.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, preamble, nc.BusinessName, nc.Domain, nc.Industry, nc.TargetMarket)
	b.WriteString("\n\n")
	b.WriteString(c.body(key, nc))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, envelopeInstruction, key.Envelope())
	return b.String()
}

func (c *TemplateCompiler) body(key core.SectionKey, nc *normalize.Context) string {
	m := nc.Metrics
	r := nc.Report()
	f := nc.Firmographics()

	switch key {
	case core.SectionExecutiveSummary:
		return fmt.Sprintf(executiveSummaryTemplate,
			m.TotalKeywords, m.EstimatedTraffic, m.TotalBacklinks, m.ReferringDomainCount,
			m.AuthorityScore, f.EmployeeEstimate, f.RevenueEstimate, nc.CompetitorLabel)
	case core.SectionKeywordRankings:
		return fmt.Sprintf(keywordRankingsTemplate, c.opts.KeywordCount, toJSON(nc.TopReportKeywords(c.opts.KeywordCount)),
			m.TotalKeywords, m.Top10Keywords, m.AveragePosition)
	case core.SectionBacklinkProfile:
		return fmt.Sprintf(backlinkProfileTemplate, m.TotalBacklinks, m.ReferringDomainCount, m.DofollowRatio, m.AuthorityScore)
	case core.SectionBacklinkQuality:
		domains := nc.ReferringDomains(c.opts.ReferringDomainCap)
		return fmt.Sprintf(backlinkQualityTemplate, len(domains), toJSON(domains))
	case core.SectionTechnicalSeo:
		return fmt.Sprintf(technicalSeoTemplate, m.PageCount, toJSON(nc.TopPages(c.opts.PageCount)), strings.Join(nc.TechnologyNames(), ", "))
	case core.SectionContentStrategy:
		return fmt.Sprintf(contentStrategyTemplate, toJSON(nc.TopPages(c.opts.PageCount)),
			strings.Join(nc.TopFirmographicKeywords(c.opts.KeywordCount), ", "))
	case core.SectionLocalSeo:
		return fmt.Sprintf(localSeoTemplate, toJSON(r.Local))
	case core.SectionMobilePerformance:
		return fmt.Sprintf(mobilePerformanceTemplate, toJSON(r.Mobile))
	case core.SectionEcommerceSeo:
		return fmt.Sprintf(ecommerceSeoTemplate, toJSON(r.Ecommerce), nc.CompetitorLabel)
	case core.SectionSocialMedia:
		return fmt.Sprintf(socialMediaTemplate, toJSON(nc.SocialProfiles()))
	case core.SectionReviews:
		return fmt.Sprintf(reviewsTemplate, m.AverageRating, m.ReviewCount, strings.Join(r.Reviews.Sources, ", "))
	case core.SectionCompetitor:
		return fmt.Sprintf(competitorTemplate, nc.CompetitorLabel, m.TotalKeywords, m.AuthorityScore)
	case core.SectionMarketPotential:
		return fmt.Sprintf(marketPotentialTemplate, strings.Join(nc.TopFirmographicKeywords(c.opts.KeywordCount), ", "), m.EstimatedTraffic)
	case core.SectionMarketCap:
		return fmt.Sprintf(marketCapTemplate, f.EmployeeEstimate, f.RevenueEstimate, f.FoundedYear, f.Country)
	case core.SectionRecommendations:
		return fmt.Sprintf(recommendationsTemplate, toJSON(m))
	case core.SectionTrends:
		return fmt.Sprintf(trendsTemplate, nc.Industry)
	case core.SectionSwotAnalysis:
		return fmt.Sprintf(swotTemplate, toJSON(m), nc.CompetitorLabel)
	default:
		return fmt.Sprintf(genericTemplate, key)
	}
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
