package prompts

const preamble = `You are a senior digital marketing analyst preparing a market analysis report.
Business: %s
Domain: %s
Industry: %s
Target market: %s`

const envelopeInstruction = `Respond with a single JSON object only, no prose and no code fences.
Wrap the whole result in a top-level key named "%s".`

const executiveSummaryTemplate = `Write an executive summary of the business's online position.
Organic keywords: %d
Estimated monthly organic traffic: %.0f
Backlinks: %d from %d referring domains
Authority score: %.1f
Employees (estimate): %s
Revenue (estimate): %s
Competitors: %s

Return fields: overview (string), keyStrengths (array of strings), keyWeaknesses (array of strings),
priorityActions (array of strings), overallScore (number 0-100).`

const keywordRankingsTemplate = `Analyse keyword rankings for the target market using the top %d ranked keywords below.
%s

Total ranked keywords: %d
Keywords in positions 1-10: %d
Average position: %.1f

Return fields:
- topKeywords: array of objects with keywordUKFocus (string), rankingUK (number), searchVolumeUK (number),
  cpcUK (string, GBP formatted like "£1.20"), difficulty (number 0-100), opportunity (string), estimatedTraffic (number)
- distributionSummary: object with percentage of keywords per position bucket under the keys
  "top3", "4-10", "11-20", "21-50", "51-100" (numbers)
- insights: array of strings`

const backlinkProfileTemplate = `Assess the backlink profile.
Total backlinks: %d
Referring domains: %d
Dofollow ratio: %.2f
Authority score: %.1f

Return fields: summary (string), strengths (array of strings), risks (array of strings),
linkBuildingOpportunities (array of strings).`

const backlinkQualityTemplate = `Review the quality of the following %d referring domains (strongest first).
%s

Return fields: overallQuality (string: high, medium or low), toxicDomains (array of strings),
authoritativeDomains (array of strings), summary (string).`

const technicalSeoTemplate = `Audit technical SEO. The site has %d indexed pages. Top pages by organic traffic:
%s

Detected technologies: %s

Return fields: score (number 0-100), issues (array of objects with issue, severity, fix),
quickWins (array of strings).`

const contentStrategyTemplate = `Propose a content strategy. Top pages by organic traffic:
%s

Business keywords: %s

Return fields: contentGaps (array of strings), pillarTopics (array of strings),
contentCalendar (array of objects with month, topic, format).`

const localSeoTemplate = `Assess local search presence from this data:
%s

Return fields: summary (string), napConsistency (string), citationOpportunities (array of strings),
recommendations (array of strings).`

const mobilePerformanceTemplate = `Assess mobile performance from this pagespeed data:
%s

Return fields: summary (string), coreWebVitals (object with lcp, cls, tbt assessments),
recommendations (array of strings).`

const ecommerceSeoTemplate = `Assess e-commerce SEO for this store:
%s

Competitors: %s

Return fields: applicable (boolean true), summary (string), productPageIssues (array of strings),
ecommerceVsCompetitorsUK (string).`

const socialMediaTemplate = `Assess social media presence. Known profiles:
%s

Return fields: summary (string), platforms (array of objects with platform, status, recommendation).`

const reviewsTemplate = `Assess online reputation.
Average rating: %.1f from %d reviews
Review sources: %s

Return fields: summary (string), sentiment (string), recommendations (array of strings).`

const competitorTemplate = `Compare the business against these competitors: %s
The business ranks for %d keywords with an authority score of %.1f.

Return fields: competitors (array of objects with name, strengths, weaknesses, estimatedTraffic),
competitiveAdvantages (array of strings), threats (array of strings).`

const marketPotentialTemplate = `Estimate market potential for the business's offering.
Business keywords: %s
Current estimated monthly organic traffic: %.0f

Return fields: marketSize (string), growthRate (string), addressableAudience (string),
opportunities (array of strings).`

const marketCapTemplate = `Estimate company scale and valuation range.
Employees (estimate): %s
Revenue (estimate): %s
Founded: %d
Country: %s

Return fields: estimatedValuation (string), revenueRange (string), confidence (string), rationale (string).`

const recommendationsTemplate = `Produce prioritised recommendations from these metrics:
%s

Return fields: immediate (array of strings), shortTerm (array of strings), longTerm (array of strings).`

const trendsTemplate = `Describe current search and market trends in the %s industry.

Return fields: trends (array of objects with trend, impact, timeframe), summary (string).`

const swotTemplate = `Produce a SWOT analysis from these metrics:
%s

Competitors: %s

Return fields: strengths, weaknesses, opportunities, threats (each an array of strings).`

const genericTemplate = `Produce the %s section of the report as structured JSON.`
