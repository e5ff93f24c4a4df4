package assemble

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

// Keyword source labels for DerivedMetrics.KeywordSource.
const (
	KeywordSourceModel    = "model"
	KeywordSourceExternal = "external"
	KeywordSourceNone     = "none"
)

func reconcileKeywordRankings(st *state, key core.SectionKey, d core.DecodedSection) any {
	content := unwrapEnvelope(d, key.Envelope())
	if d.IsError() {
		st.keywordSource = KeywordSourceNone
		return content
	}

	var merged map[string]any
	var modelRows any
	switch v := content.(type) {
	case map[string]any:
		merged = make(map[string]any, len(v)+1)
		for k, val := range v {
			merged[k] = val
		}
		modelRows = v["topKeywords"]
		if dist, ok := v["distributionSummary"].(map[string]any); ok {
			st.distribution = dist
		}
	case []any:
		// Bare array: treat it as the keyword list.
		merged = make(map[string]any, 1)
		modelRows = v
	default:
		merged = map[string]any{"summary": v}
	}

	if rows, ok := modelRows.([]any); ok && len(rows) > 0 {
		st.topKeywords = rows
		st.keywordSource = KeywordSourceModel
	} else {
		st.topKeywords = ExternalKeywords(st.report)
		st.keywordSource = KeywordSourceExternal
	}
	merged["topKeywords"] = st.topKeywords
	return merged
}

// ExternalKeywords maps the external report's ranked keywords to the
// keyword row shape requested of the model. Fields the report cannot supply
// are null.
func ExternalKeywords(r *core.ExternalReport) []any {
	rows := make([]any, 0, len(r.Organic.RankedKeywords))
	for _, kw := range r.Organic.RankedKeywords {
		rows = append(rows, map[string]any{
			"keywordUKFocus":   kw.Term,
			"rankingUK":        float64(kw.Position),
			"searchVolumeUK":   float64(kw.MonthlyQueries),
			"cpcUK":            fmt.Sprintf("£%.2f", kw.CPC),
			"difficulty":       nil,
			"opportunity":      nil,
			"estimatedTraffic": nil,
		})
	}
	return rows
}

// ClickThroughRate is the fixed rank to CTR step function.
func ClickThroughRate(rank float64) float64 {
	switch {
	case rank <= 1:
		return 0.28
	case rank <= 3:
		return 0.15
	case rank <= 5:
		return 0.06
	case rank <= 10:
		return 0.025
	default:
		return 0.005
	}
}

// TrafficValue estimates monthly organic traffic value as the rounded sum of
// CTR(rank) * volume * cpc over rows with numeric rank and volume and a
// parseable cpc. Rows ranked below 1 are skipped. Returns nil unless the sum
// is positive.
func TrafficValue(rows []any) *int64 {
	var sum float64
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		rank, ok := number(obj["rankingUK"])
		if !ok || rank < 1 {
			continue
		}
		volume, ok := number(obj["searchVolumeUK"])
		if !ok {
			continue
		}
		cpc, ok := ParseCurrency(obj["cpcUK"])
		if !ok {
			continue
		}
		sum += ClickThroughRate(rank) * volume * cpc
	}

	// Sums beyond int64 range come from nonsense volumes, not real traffic.
	if !(sum > 0) || sum >= math.MaxInt64 {
		return nil
	}
	value := int64(math.Round(sum))
	return &value
}

// ParseCurrency reads a cost such as "£1,234.50" or a bare JSON number.
func ParseCurrency(v any) (float64, bool) {
	switch c := v.(type) {
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, c)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return number(v)
	}
}

// number accepts JSON numbers only; numeric strings are not numbers.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
