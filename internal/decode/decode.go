// Package decode recovers JSON values from free-text model responses.
package decode

import (
	"encoding/json"
	"strings"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

// Tier identifies which recovery step produced a value.
type Tier int

const (
	TierDirect Tier = iota
	TierBraces
	TierNewlines
	TierFailed
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierBraces:
		return "braces"
	case TierNewlines:
		return "newlines"
	default:
		return "failed"
	}
}

var newlineReplacer = strings.NewReplacer(
	`\r\n`, " ",
	`\n`, " ",
	`\r`, " ",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Section decodes one outcome. It never panics and always returns either a
// parsed value or an error marker.
func Section(outcome core.SectionOutcome, sectionName string) core.DecodedSection {
	decoded, _ := SectionWithTier(outcome, sectionName)
	return decoded
}

// SectionWithTier is Section plus the recovery tier that succeeded.
func SectionWithTier(outcome core.SectionOutcome, sectionName string) (core.DecodedSection, Tier) {
	if outcome.Status == core.StatusRejected {
		reason := "unknown error"
		if outcome.Reason != nil {
			reason = outcome.Reason.Error()
		}
		return core.DecodeFailure("Failed to generate %s. Reason: %s", sectionName, reason), TierFailed
	}

	text, ok := responseText(outcome.Response)
	if !ok {
		return core.DecodeFailure("AI response structure invalid for %s.", sectionName), TierFailed
	}

	value, tier, ok := Text(text)
	if !ok {
		logger.Warn("Model response was not recoverable JSON", "section", sectionName, "length", len(text))
		return core.DecodeFailure("AI response for %s was not valid JSON and all recovery attempts failed.", sectionName), TierFailed
	}
	if tier != TierDirect {
		logger.Debug("Recovered model JSON", "section", sectionName, "tier", tier.String())
	}
	return core.Decoded(value), tier
}

// Text runs the recovery ladder over raw model text.
func Text(raw string) (any, Tier, bool) {
	cleaned := StripFence(raw)

	if v, ok := parse(cleaned); ok {
		return v, TierDirect, true
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, TierFailed, false
	}
	candidate := cleaned[start : end+1]

	if v, ok := parse(candidate); ok {
		return v, TierBraces, true
	}

	if v, ok := parse(newlineReplacer.Replace(candidate)); ok {
		return v, TierNewlines, true
	}

	return nil, TierFailed, false
}

// StripFence removes a leading ```json (or bare ```) marker and a trailing ```
// marker, then trims surrounding whitespace.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parse(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// responseText extracts the text payload, guarding against nil responses and
// providers whose accessor panics on an empty candidate list.
func responseText(resp core.Response) (text string, ok bool) {
	if resp == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()
	return resp.Text(), true
}
