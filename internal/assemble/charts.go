package assemble

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
)

const keywordVolumeLimit = 10

// distributionBuckets fixes the order and labels of the position chart.
var distributionBuckets = []struct {
	key   string
	label string
}{
	{"top3", "Top 3"},
	{"4-10", "4-10"},
	{"11-20", "11-20"},
	{"21-50", "21-50"},
	{"51-100", "51-100"},
}

// DistributionSeries builds the keyword position chart from the model's
// distribution summary. Known buckets come first in fixed order, unknown
// keys follow alphabetically. Zero and unparseable buckets are dropped.
func DistributionSeries(summary map[string]any) []core.ChartPoint {
	points := []core.ChartPoint{}
	known := make(map[string]bool, len(distributionBuckets))
	for _, b := range distributionBuckets {
		known[b.key] = true
		if v, ok := percentage(summary[b.key]); ok && v > 0 {
			points = append(points, core.ChartPoint{Name: b.label, Value: v})
		}
	}

	var extra []string
	for k := range summary {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if v, ok := percentage(summary[k]); ok && v > 0 {
			points = append(points, core.ChartPoint{Name: k, Value: v})
		}
	}
	return points
}

func percentage(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return number(v)
}

// KeywordVolumeSeries lists the external report's highest volume keywords.
func KeywordVolumeSeries(r *core.ExternalReport, limit int) []core.KeywordVolumePoint {
	rows := append([]core.RankedKeyword(nil), r.Organic.RankedKeywords...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MonthlyQueries > rows[j].MonthlyQueries
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	points := make([]core.KeywordVolumePoint, 0, len(rows))
	for _, kw := range rows {
		points = append(points, core.KeywordVolumePoint{
			Keyword:  kw.Term,
			Volume:   kw.MonthlyQueries,
			Position: kw.Position,
		})
	}
	return points
}

// TrafficTrendSeries charts the external organic traffic history.
func TrafficTrendSeries(r *core.ExternalReport) []core.ChartPoint {
	points := make([]core.ChartPoint, 0, len(r.TrafficHistory))
	for _, s := range r.TrafficHistory {
		points = append(points, core.ChartPoint{Name: s.Month, Value: s.Traffic})
	}
	return points
}
