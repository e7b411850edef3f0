package marketlens

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decodeEvent(t *testing.T, data string) gammaEvent {
	t.Helper()
	var event gammaEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}

func decodeMarket(t *testing.T, data string) gammaMarket {
	t.Helper()
	var market gammaMarket
	if err := json.Unmarshal([]byte(data), &market); err != nil {
		t.Fatalf("decode market: %v", err)
	}
	return market
}

func assertOutcomesSorted(t *testing.T, outcomes []Outcome) {
	t.Helper()
	if len(outcomes) == 0 {
		t.Fatalf("expected outcomes, got none")
	}
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i].Probability > outcomes[i-1].Probability {
			t.Fatalf("outcomes not sorted: %+v", outcomes)
		}
	}
}

const threeSubMarketEvent = `{
	"id": "900",
	"slug": "fed-rates",
	"title": "Fed decision in June?",
	"description": "Event-level description.",
	"markets": [
		{"id": "1", "question": "Cut 25bps?", "outcomes": "[\"Yes\",\"No\"]", "outcomePrices": "[\"0.2\",\"0.8\"]", "volume": "10", "active": false},
		{"id": "2", "question": "Hold?", "outcomes": "[\"Yes\",\"No\"]", "outcomePrices": "[\"0.7\",\"0.3\"]", "volumeNum": 500, "active": false, "groupItemTitle": "No change"},
		{"id": "3", "question": "Hike?", "outcomes": "[\"Yes\",\"No\"]", "outcomePrices": "[\"0.1\",\"0.9\"]", "active": false}
	]
}`

func TestNormalizeEventSelectsHighestVolume(t *testing.T) {
	t.Parallel()

	market := normalizeEvent(decodeEvent(t, threeSubMarketEvent), "unknown-id")
	if market.ID != "2" {
		t.Fatalf("expected volume-500 sub-market, got id %q", market.ID)
	}
	if market.VolumeRaw != 500 || market.VolumeDisplay != "$500" {
		t.Fatalf("unexpected volume: %v %q", market.VolumeRaw, market.VolumeDisplay)
	}
	if market.Question != "Fed decision in June?" || market.Description != "Event-level description." {
		t.Fatalf("expected event title/description to win, got %q / %q", market.Question, market.Description)
	}
	if market.GroupLabel != "No change" {
		t.Fatalf("expected group label, got %q", market.GroupLabel)
	}
	if market.URL != "https://polymarket.com/event/fed-rates?tid=2" {
		t.Fatalf("unexpected url %q", market.URL)
	}
	if market.Outcomes[0].Name != "Yes" || market.Outcomes[0].Probability != 0.7 {
		t.Fatalf("unexpected outcomes: %+v", market.Outcomes)
	}
}

func TestSelectSubMarketPriority(t *testing.T) {
	t.Parallel()

	event := decodeEvent(t, `{"markets":[
		{"id":"a","volumeNum":900},
		{"id":"b","active":true,"volumeNum":5},
		{"id":"c","volumeNum":1}
	]}`)

	tests := []struct {
		name        string
		secondaryID string
		want        string
	}{
		{"id match wins", "c", "c"},
		{"active wins without match", "", "b"},
		{"active wins on unknown id", "zzz", "b"},
	}
	for _, tt := range tests {
		got, ok := selectSubMarket(event.Markets, tt.secondaryID)
		if !ok || string(got.ID) != tt.want {
			t.Fatalf("%s: expected %q, got %q (ok=%v)", tt.name, tt.want, got.ID, ok)
		}
	}

	if _, ok := selectSubMarket(nil, ""); ok {
		t.Fatalf("expected no selection for empty list")
	}
}

func TestNormalizeEventWithoutMarketsFallsBack(t *testing.T) {
	t.Parallel()

	market := normalizeEvent(decodeEvent(t, `{"id":"7","slug":"empty","title":"Empty event","volume":"2500"}`), "")
	if !reflect.DeepEqual(market.Outcomes, fallbackOutcomes()) {
		t.Fatalf("expected fallback outcomes, got %+v", market.Outcomes)
	}
	if market.ID != "7" || market.VolumeDisplay != "$2.5k" {
		t.Fatalf("unexpected market: %+v", market)
	}
}

func TestNormalizeMarketOutcomeShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want []Outcome
	}{
		{
			name: "native lists sorted descending",
			data: `{"outcomes":["No","Yes"],"outcomePrices":[0.25,0.75]}`,
			want: []Outcome{{"Yes", 0.75, 0.75}, {"No", 0.25, 0.25}},
		},
		{
			name: "csv with percent scale",
			data: `{"outcomes":"Alice, Bob","prices":"40, 60"}`,
			want: []Outcome{{"Bob", 0.6, 0.6}, {"Alice", 0.4, 0.4}},
		},
		{
			name: "length mismatch uses shorter",
			data: `{"outcomes":"[\"A\",\"B\",\"C\"]","outcomePrices":"[\"0.5\",\"0.3\"]"}`,
			want: []Outcome{{"A", 0.5, 0.5}, {"B", 0.3, 0.3}},
		},
		{
			name: "unparseable price becomes zero",
			data: `{"outcomes":["Yes","No"],"outcomePrices":["abc","0.4"]}`,
			want: []Outcome{{"No", 0.4, 0.4}, {"Yes", 0, 0}},
		},
		{
			name: "missing data falls back",
			data: `{"question":"q"}`,
			want: fallbackOutcomes(),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			market := normalizeMarket(decodeMarket(t, tt.data))
			if !reflect.DeepEqual(market.Outcomes, tt.want) {
				t.Fatalf("got %+v, want %+v", market.Outcomes, tt.want)
			}
			assertOutcomesSorted(t, market.Outcomes)
		})
	}
}

func TestNormalizeMarketFields(t *testing.T) {
	t.Parallel()

	market := normalizeMarket(decodeMarket(t, `{
		"id": 42,
		"slug": "will-it-rain",
		"question": " Will it rain? ",
		"outcomes": "[\"Yes\",\"No\"]",
		"outcomePrices": "[\"0.55\",\"0.45\"]",
		"volume": "1250000",
		"liquidityNum": 15300,
		"endDate": "2025-06-30T12:00:00Z",
		"active": "true",
		"closed": false,
		"events": [{"slug": "weather"}]
	}`))

	if market.ID != "42" || market.Question != "Will it rain?" {
		t.Fatalf("unexpected identity: %+v", market)
	}
	if market.VolumeDisplay != "$1.3m" || market.LiquidityDisplay != "$15.3k" {
		t.Fatalf("unexpected displays: %q %q", market.VolumeDisplay, market.LiquidityDisplay)
	}
	if market.EndDate != "2025-06-30" || !market.Active {
		t.Fatalf("unexpected endDate/active: %q %v", market.EndDate, market.Active)
	}
	if market.URL != "https://polymarket.com/event/weather" {
		t.Fatalf("unexpected url %q", market.URL)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	raw := decodeEvent(t, threeSubMarketEvent)
	first := normalizeEvent(raw, "")
	second := normalizeEvent(raw, "")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestFormatUSD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{-5, "$0"},
		{999.4, "$999"},
		{1000, "$1.0k"},
		{15349, "$15.3k"},
		{999_999, "$1000.0k"},
		{1_000_000, "$1.0m"},
		{1_250_000, "$1.3m"},
		{42_000_000, "$42.0m"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Fatalf("formatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEndDate(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                         "",
		"2024-11-05":               "2024-11-05",
		"2024-11-05T12:00:00.000Z": "2024-11-05",
		"soon":                     "soon",
	}
	for in, want := range tests {
		if got := normalizeEndDate(in); got != want {
			t.Fatalf("normalizeEndDate(%q) = %q, want %q", in, got, want)
		}
	}
}
