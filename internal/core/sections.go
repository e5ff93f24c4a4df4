package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SectionKey names one report section.
type SectionKey string

const (
	SectionExecutiveSummary  SectionKey = "executiveSummary"
	SectionKeywordRankings   SectionKey = "keywordRankings"
	SectionBacklinkProfile   SectionKey = "backlinkProfile"
	SectionBacklinkQuality   SectionKey = "backlinkQuality"
	SectionTechnicalSeo      SectionKey = "technicalSeo"
	SectionContentStrategy   SectionKey = "contentStrategy"
	SectionLocalSeo          SectionKey = "localSeo"
	SectionMobilePerformance SectionKey = "mobilePerformance"
	SectionEcommerceSeo      SectionKey = "ecommerceSeo"
	SectionSocialMedia       SectionKey = "socialMedia"
	SectionReviews           SectionKey = "reviews"
	SectionCompetitor        SectionKey = "competitor"
	SectionMarketPotential   SectionKey = "marketPotential"
	SectionMarketCap         SectionKey = "marketCap"
	SectionRecommendations   SectionKey = "recommendations"
	SectionTrends            SectionKey = "trends"
	SectionSwotAnalysis      SectionKey = "swotAnalysis"
)

// AllSections lists every section in report order.
var AllSections = []SectionKey{
	SectionExecutiveSummary,
	SectionKeywordRankings,
	SectionBacklinkProfile,
	SectionBacklinkQuality,
	SectionTechnicalSeo,
	SectionContentStrategy,
	SectionLocalSeo,
	SectionMobilePerformance,
	SectionEcommerceSeo,
	SectionSocialMedia,
	SectionReviews,
	SectionCompetitor,
	SectionMarketPotential,
	SectionMarketCap,
	SectionRecommendations,
	SectionTrends,
	SectionSwotAnalysis,
}

func (k SectionKey) String() string { return string(k) }

// PromptPayload is what gets sent for one section: either a prompt string or
// a literal object that satisfies the section without a provider round-trip.
type PromptPayload struct {
	Prompt  string
	Literal any
}

// PromptText builds a payload that requires a model call.
func PromptText(prompt string) PromptPayload {
	return PromptPayload{Prompt: prompt}
}

// PreResolved builds a payload that is satisfied in-process.
func PreResolved(literal any) PromptPayload {
	return PromptPayload{Literal: literal}
}

// IsPreResolved reports whether the payload carries a literal object.
func (p PromptPayload) IsPreResolved() bool {
	return p.Literal != nil
}

// SectionRequest pairs a section with its compiled payload. Immutable once compiled.
type SectionRequest struct {
	Key     SectionKey
	Payload PromptPayload
}

// Response is a model provider response. Providers must expose the generated text.
type Response interface {
	Text() string
}

// TextResponse is a Response over a plain string.
type TextResponse string

func (t TextResponse) Text() string { return string(t) }

// LiteralResponse serves a pre-resolved literal as JSON text so the decoder
// treats it like any other fulfilled outcome.
type LiteralResponse struct {
	Value any
}

func (l LiteralResponse) Text() string {
	b, err := json.Marshal(l.Value)
	if err != nil {
		return ""
	}
	return string(b)
}

// OutcomeStatus is the settle state of one section call.
type OutcomeStatus string

const (
	StatusFulfilled OutcomeStatus = "fulfilled"
	StatusRejected  OutcomeStatus = "rejected"
)

// SectionOutcome is the settle result of one section call.
type SectionOutcome struct {
	Status      OutcomeStatus
	Response    Response // set when fulfilled
	Reason      error    // set when rejected
	PreResolved bool     // satisfied without a provider call
}

// Fulfilled wraps a provider response.
func Fulfilled(resp Response) SectionOutcome {
	return SectionOutcome{Status: StatusFulfilled, Response: resp}
}

// Rejected wraps a provider failure. A nil reason is replaced with a generic one.
func Rejected(reason error) SectionOutcome {
	if reason == nil {
		reason = errors.New("unknown provider failure")
	}
	return SectionOutcome{Status: StatusRejected, Reason: reason}
}

// DecodedSection is either a parsed JSON value or an error marker.
// It serializes as the value itself, or as {"error": "..."}.
type DecodedSection struct {
	Value any
	Err   string
}

// Decoded wraps a successfully parsed value.
func Decoded(v any) DecodedSection {
	return DecodedSection{Value: v}
}

// DecodeFailure builds an error marker.
func DecodeFailure(format string, args ...any) DecodedSection {
	return DecodedSection{Err: fmt.Sprintf(format, args...)}
}

// IsError reports whether the section carries an error marker.
func (d DecodedSection) IsError() bool {
	return d.Err != ""
}

// Object returns the value as a JSON object when it is one.
func (d DecodedSection) Object() (map[string]any, bool) {
	if d.IsError() {
		return nil, false
	}
	m, ok := d.Value.(map[string]any)
	return m, ok
}

// ErrorMarker returns the {"error": ...} object for an error section.
func (d DecodedSection) ErrorMarker() map[string]any {
	return map[string]any{"error": d.Err}
}

// MarshalJSON implements json.Marshaler.
func (d DecodedSection) MarshalJSON() ([]byte, error) {
	if d.IsError() {
		return json.Marshal(d.ErrorMarker())
	}
	return json.Marshal(d.Value)
}

// Envelope returns the top-level key the model is asked to wrap the section in.
func (k SectionKey) Envelope() string {
	switch k {
	case SectionBacklinkQuality:
		return "qualitySummary"
	case SectionCompetitor:
		return "competitorAnalysis"
	default:
		return string(k)
	}
}

// EcommerceNotApplicableSummary is the summary used when no store is detected.
const EcommerceNotApplicableSummary = "N/A - No e-commerce functionality detected for this website."

// EcommerceNotApplicable is the literal served for ecommerceSeo on sites
// without e-commerce functionality.
func EcommerceNotApplicable() map[string]any {
	return map[string]any{
		"applicable":               false,
		"summary":                  EcommerceNotApplicableSummary,
		"ecommerceVsCompetitorsUK": nil,
	}
}
