package cost

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

// ModelPricing represents the pricing for one model
type ModelPricing struct {
	Model                 string
	InputCostPer1MTokens  float64 // Cost per 1M input tokens in USD
	OutputCostPer1MTokens float64 // Cost per 1M output tokens in USD
	EstimatedOutputTokens int     // Typical section response length
	MaxRequestsPerMinute  int     // Provider rate limit
}

// DefaultPricingModel is used for models missing from PricingTable
const DefaultPricingModel = "gemini-2.0-flash"

// PricingTable contains list prices per model
var PricingTable = map[string]ModelPricing{
	"gemini-2.0-flash": {
		Model:                 "gemini-2.0-flash",
		InputCostPer1MTokens:  0.10,
		OutputCostPer1MTokens: 0.40,
		EstimatedOutputTokens: 900,
		MaxRequestsPerMinute:  2000,
	},
	"gemini-1.5-flash": {
		Model:                 "gemini-1.5-flash",
		InputCostPer1MTokens:  0.075,
		OutputCostPer1MTokens: 0.30,
		EstimatedOutputTokens: 900,
		MaxRequestsPerMinute:  1000,
	},
	"gemini-1.5-pro": {
		Model:                 "gemini-1.5-pro",
		InputCostPer1MTokens:  1.25,
		OutputCostPer1MTokens: 5.00,
		EstimatedOutputTokens: 1100,
		MaxRequestsPerMinute:  360,
	},
	"gpt-4o-mini": {
		Model:                 "gpt-4o-mini",
		InputCostPer1MTokens:  0.15,
		OutputCostPer1MTokens: 0.60,
		EstimatedOutputTokens: 900,
		MaxRequestsPerMinute:  500,
	},
	"gpt-4o": {
		Model:                 "gpt-4o",
		InputCostPer1MTokens:  2.50,
		OutputCostPer1MTokens: 10.00,
		EstimatedOutputTokens: 1100,
		MaxRequestsPerMinute:  500,
	},
}

// Sections whose responses run longer than the model's typical output
var outputMultiplier = map[core.SectionKey]float64{
	core.SectionKeywordRankings:  2.0,
	core.SectionCompetitor:       1.5,
	core.SectionRecommendations:  1.5,
	core.SectionContentStrategy:  1.5,
	core.SectionExecutiveSummary: 1.2,
}

// EstimateTokenCount provides a rough estimation of token count for text
// This is a simplified approximation: typically 1 token ≈ 4 characters
func EstimateTokenCount(text string) int {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")

	charCount := utf8.RuneCountInString(text)

	// Slightly under 4 characters per token leaves room for special tokens
	return int(math.Ceil(float64(charCount) / 3.5))
}

// SectionCostEstimate is the estimate for one section call
type SectionCostEstimate struct {
	Section               core.SectionKey
	EstimatedInputTokens  int
	EstimatedOutputTokens int
	InputCost             float64
	OutputCost            float64
	TotalCost             float64
	PreResolved           bool // No provider call, no cost
}

// JobCostEstimate is the estimate for one analysis job
type JobCostEstimate struct {
	Model             string
	Sections          []SectionCostEstimate
	TotalInputTokens  int
	TotalOutputTokens int
	TotalCost         float64
	ProviderCalls     int
	RateLimitWarning  string
}

// LookupPricing returns pricing for modelName, falling back to the default model
func LookupPricing(modelName string) ModelPricing {
	if pricing, exists := PricingTable[modelName]; exists {
		return pricing
	}
	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(modelName, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return PricingTable[best]
	}
	return PricingTable[DefaultPricingModel]
}

// EstimateJobCost prices a compiled request set
func EstimateJobCost(requests map[core.SectionKey]core.SectionRequest, modelName string, rpm int) *JobCostEstimate {
	pricing := LookupPricing(modelName)

	estimate := &JobCostEstimate{
		Model:    modelName,
		Sections: make([]SectionCostEstimate, 0, len(requests)),
	}

	keys := make([]core.SectionKey, 0, len(requests))
	for k := range requests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		sectionEst := estimateSectionCost(requests[key], pricing)
		estimate.Sections = append(estimate.Sections, sectionEst)
		if sectionEst.PreResolved {
			continue
		}
		estimate.ProviderCalls++
		estimate.TotalInputTokens += sectionEst.EstimatedInputTokens
		estimate.TotalOutputTokens += sectionEst.EstimatedOutputTokens
		estimate.TotalCost += sectionEst.TotalCost
	}

	limit := pricing.MaxRequestsPerMinute
	if rpm > 0 && rpm < limit {
		limit = rpm
	}
	if estimate.ProviderCalls > limit {
		estimate.RateLimitWarning = fmt.Sprintf(
			"Warning: %d section calls exceed the rate limit of %d/min for %s",
			estimate.ProviderCalls, limit, modelName,
		)
	}

	return estimate
}

func estimateSectionCost(req core.SectionRequest, pricing ModelPricing) SectionCostEstimate {
	est := SectionCostEstimate{Section: req.Key}
	if req.Payload.IsPreResolved() {
		est.PreResolved = true
		return est
	}

	outputTokens := float64(pricing.EstimatedOutputTokens)
	if m, ok := outputMultiplier[req.Key]; ok {
		outputTokens *= m
	}

	est.EstimatedInputTokens = EstimateTokenCount(req.Payload.Prompt)
	est.EstimatedOutputTokens = int(math.Ceil(outputTokens))
	est.InputCost = float64(est.EstimatedInputTokens) * pricing.InputCostPer1MTokens / 1000000
	est.OutputCost = float64(est.EstimatedOutputTokens) * pricing.OutputCostPer1MTokens / 1000000
	est.TotalCost = est.InputCost + est.OutputCost
	return est
}

// FormatEstimate formats the cost estimate for display
func (e *JobCostEstimate) FormatEstimate() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Cost Estimation for %s\n", e.Model))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString(fmt.Sprintf("Provider calls: %d\n", e.ProviderCalls))
	sb.WriteString(fmt.Sprintf("Input tokens: %d\n", e.TotalInputTokens))
	sb.WriteString(fmt.Sprintf("Output tokens: %d\n", e.TotalOutputTokens))
	sb.WriteString(fmt.Sprintf("Total estimated cost: $%.6f\n", e.TotalCost))
	if e.RateLimitWarning != "" {
		sb.WriteString(e.RateLimitWarning + "\n")
	}
	sb.WriteString("\n")

	for _, s := range e.Sections {
		if s.PreResolved {
			sb.WriteString(fmt.Sprintf("   %-18s pre-resolved\n", s.Section))
			continue
		}
		sb.WriteString(fmt.Sprintf("   %-18s $%.6f (%d in / %d out)\n", s.Section, s.TotalCost, s.EstimatedInputTokens, s.EstimatedOutputTokens))
	}

	return sb.String()
}
