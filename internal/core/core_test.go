package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodedSection_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		section DecodedSection
		want    string
	}{
		{"object", Decoded(map[string]any{"a": 1.0}), `{"a":1}`},
		{"array", Decoded([]any{"x", "y"}), `["x","y"]`},
		{"primitive", Decoded("text"), `"text"`},
		{"error", DecodeFailure("Failed to generate %s.", "trends"), `{"error":"Failed to generate trends."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.section)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, b)
			}
		})
	}
}

func TestDecodedSection_Object(t *testing.T) {
	if _, ok := Decoded([]any{1.0}).Object(); ok {
		t.Error("Array should not be reported as object")
	}
	if _, ok := DecodeFailure("boom").Object(); ok {
		t.Error("Error marker should not be reported as object")
	}
	m, ok := Decoded(map[string]any{"k": "v"}).Object()
	if !ok || m["k"] != "v" {
		t.Errorf("Expected object with k=v, got %v (%v)", m, ok)
	}
}

func TestLiteralResponse_Text(t *testing.T) {
	resp := LiteralResponse{Value: map[string]any{"applicable": false, "summary": "N/A"}}
	var back map[string]any
	if err := json.Unmarshal([]byte(resp.Text()), &back); err != nil {
		t.Fatalf("Literal text is not JSON: %v", err)
	}
	if back["applicable"] != false {
		t.Errorf("Expected applicable=false, got %v", back["applicable"])
	}
}

func TestRejected_NilReason(t *testing.T) {
	out := Rejected(nil)
	if out.Status != StatusRejected {
		t.Errorf("Expected rejected status, got %s", out.Status)
	}
	if out.Reason == nil {
		t.Error("Expected a non-nil reason")
	}

	reason := errors.New("quota exceeded")
	if got := Rejected(reason).Reason; got != reason {
		t.Errorf("Expected reason to be preserved, got %v", got)
	}
}

func TestPromptPayload_PreResolved(t *testing.T) {
	if PromptText("hello").IsPreResolved() {
		t.Error("Prompt payload should not be pre-resolved")
	}
	if !PreResolved(map[string]any{}).IsPreResolved() {
		t.Error("Literal payload should be pre-resolved")
	}
}

func TestSocialURLs_Present(t *testing.T) {
	s := SocialURLs{LinkedIn: "https://linkedin.com/company/acme", YouTube: ""}
	got := s.Present()
	if len(got) != 1 || got["linkedin"] == "" {
		t.Errorf("Expected only linkedin, got %v", got)
	}
}

func TestSectionKey_Envelope(t *testing.T) {
	tests := map[SectionKey]string{
		SectionBacklinkQuality:  "qualitySummary",
		SectionCompetitor:       "competitorAnalysis",
		SectionKeywordRankings:  "keywordRankings",
		SectionExecutiveSummary: "executiveSummary",
	}
	for key, want := range tests {
		if got := key.Envelope(); got != want {
			t.Errorf("%s.Envelope() = %s, want %s", key, got, want)
		}
	}
}

func TestEcommerceNotApplicable(t *testing.T) {
	b, err := json.Marshal(EcommerceNotApplicable())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"applicable":false,"ecommerceVsCompetitorsUK":null,"summary":"N/A - No e-commerce functionality detected for this website."}`
	if string(b) != want {
		t.Errorf("Expected %s, got %s", want, b)
	}
}
