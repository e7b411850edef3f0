package marketlens

import (
	"reflect"
	"testing"
)

func TestParseRecommendationQuick(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{
		"summary": " Market looks fairly priced. ",
		"recommendation": "buy",
		"confidenceScore": 150,
		"reasoning": ["Volume is deep", "", "Momentum is positive"],
		"estimatedProbability": "64%"
	}` + "\n```"

	got, err := ParseRecommendation(raw, ParseOptions{})
	if err != nil {
		t.Fatalf("ParseRecommendation: %v", err)
	}
	if got.Summary != "Market looks fairly priced." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if got.Recommendation != ActionBuy || got.ConfidenceScore != 100 {
		t.Fatalf("unexpected action/confidence: %s %d", got.Recommendation, got.ConfidenceScore)
	}
	if !reflect.DeepEqual(got.Reasoning, []string{"Volume is deep", "Momentum is positive"}) {
		t.Fatalf("unexpected reasoning %#v", got.Reasoning)
	}
	if got.EstimatedProbability != nil || got.Sources != nil {
		t.Fatalf("quick parse must not carry extended fields: %+v", got)
	}
}

func TestParseRecommendationNormalizesValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		action     Action
		confidence int
		reasoning  []string
	}{
		{"unknown action", `{"summary":"s","recommendation":"MAYBE","confidenceScore":55.6,"reasoning":["r"]}`, ActionHold, 56, []string{"r"}},
		{"negative confidence", `{"summary":"s","recommendation":"sell","confidenceScore":-5,"reasoning":"single line"}`, ActionSell, 0, []string{"single line"}},
		{"non numeric confidence", `{"summary":"s","recommendation":" Avoid ","confidenceScore":"abc","reasoning":[]}`, ActionAvoid, 0, []string{noReasoningPlaceholder}},
		{"string confidence", `{"summary":"s","recommendation":"HOLD","confidenceScore":"72","reasoning":[""]}`, ActionHold, 72, []string{noReasoningPlaceholder}},
		{"prose wrapped", `Here you go: {"summary":"s","recommendation":"BUY","confidenceScore":40,"reasoning":["r"]} Good luck.`, ActionBuy, 40, []string{"r"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRecommendation(tt.raw, ParseOptions{})
			if err != nil {
				t.Fatalf("ParseRecommendation: %v", err)
			}
			if got.Recommendation != tt.action {
				t.Fatalf("action = %s, want %s", got.Recommendation, tt.action)
			}
			if got.ConfidenceScore != tt.confidence {
				t.Fatalf("confidence = %d, want %d", got.ConfidenceScore, tt.confidence)
			}
			if got.ConfidenceScore < 0 || got.ConfidenceScore > 100 {
				t.Fatalf("confidence out of range: %d", got.ConfidenceScore)
			}
			if !reflect.DeepEqual(got.Reasoning, tt.reasoning) {
				t.Fatalf("reasoning = %#v, want %#v", got.Reasoning, tt.reasoning)
			}
		})
	}
}

func TestParseRecommendationRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not json at all", "{broken", "[1,2,3]"} {
		_, err := ParseRecommendation(raw, ParseOptions{})
		if !IsErrorCode(err, ErrCodeInvalidOutput) {
			t.Fatalf("ParseRecommendation(%q) error = %v, want %s", raw, err, ErrCodeInvalidOutput)
		}
	}
}

func TestParseRecommendationMissingFields(t *testing.T) {
	t.Parallel()

	_, err := ParseRecommendation(`{"summary":"s","recommendation":"BUY","confidenceScore":null}`, ParseOptions{})
	if !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var fields []string
	if e, ok := err.(*Error); ok {
		fields = e.Fields
	}
	if !reflect.DeepEqual(fields, []string{"confidenceScore", "reasoning"}) {
		t.Fatalf("unexpected missing fields %#v", fields)
	}
}

func TestParseRecommendationDeepFields(t *testing.T) {
	t.Parallel()

	raw := `{
		"summary": "Mispriced.",
		"recommendation": "BUY",
		"confidenceScore": 70,
		"reasoning": ["News flow supports Yes"],
		"estimatedProbability": "71%",
		"edgePercentage": 7.5,
		"keyRisks": ["Late reversal", 3, " "],
		"marketEfficiency": "medium",
		"sources": [
			{"title": "Reuters", "url": "https://reuters.com/a"},
			{"title": "", "url": "https://skipped.example"},
			{"title": "Dup", "url": "https://reuters.com/a"}
		]
	}`
	citations := []Source{
		{Title: "Reuters again", URL: "https://reuters.com/a"},
		{Title: "", URL: "https://apnews.com/b"},
		{Title: "No link", URL: " "},
	}

	got, err := ParseRecommendation(raw, ParseOptions{Extended: true, Citations: citations})
	if err != nil {
		t.Fatalf("ParseRecommendation: %v", err)
	}
	if got.EstimatedProbability == nil || *got.EstimatedProbability != "71%" {
		t.Fatalf("unexpected estimatedProbability %v", got.EstimatedProbability)
	}
	if got.EdgePercentage != nil {
		t.Fatalf("non-string edgePercentage should be dropped, got %q", *got.EdgePercentage)
	}
	if !reflect.DeepEqual(got.KeyRisks, []string{"Late reversal"}) {
		t.Fatalf("unexpected keyRisks %#v", got.KeyRisks)
	}
	if got.MarketEfficiency == nil || *got.MarketEfficiency != EfficiencyMedium {
		t.Fatalf("unexpected marketEfficiency %v", got.MarketEfficiency)
	}
	want := []Source{
		{Title: "Reuters", URL: "https://reuters.com/a"},
		{Title: "https://apnews.com/b", URL: "https://apnews.com/b"},
	}
	if !reflect.DeepEqual(got.Sources, want) {
		t.Fatalf("sources = %#v, want %#v", got.Sources, want)
	}
}

func TestParseRecommendationFencedMatchesPlain(t *testing.T) {
	t.Parallel()

	plain := `{"summary":"Fair.","recommendation":"HOLD","confidenceScore":55,"reasoning":["Balanced flow"],
		"estimatedProbability":"50%","keyRisks":["Thin book"],"marketEfficiency":"HIGH",
		"sources":[{"title":"AP","url":"https://apnews.com/x"}]}`
	for _, opts := range []ParseOptions{{}, {Extended: true}} {
		want, err := ParseRecommendation(plain, opts)
		if err != nil {
			t.Fatalf("ParseRecommendation plain: %v", err)
		}
		for _, fenced := range []string{
			"```json\n" + plain + "\n```",
			"```\n" + plain + "```",
			"\n\n```JSON\n" + plain + "\n```\n",
		} {
			got, err := ParseRecommendation(fenced, opts)
			if err != nil {
				t.Fatalf("ParseRecommendation fenced %q: %v", fenced, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("fenced parse differs (extended=%v):\n got %+v\nwant %+v", opts.Extended, got, want)
			}
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
