package marketlens

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const siteBaseURL = "https://polymarket.com"

var (
	millionThreshold  = decimal.NewFromInt(1_000_000)
	thousandThreshold = decimal.NewFromInt(1_000)
)

// normalizeEvent builds a Market from an event, choosing one sub-market. The
// event's title and description take priority over the sub-market's.
func normalizeEvent(event gammaEvent, secondaryID string) Market {
	selected, ok := selectSubMarket(event.Markets, secondaryID)
	if !ok {
		market := Market{
			ID:          string(event.ID),
			Question:    strings.TrimSpace(event.Title),
			Description: strings.TrimSpace(event.Description),
			Outcomes:    fallbackOutcomes(),
			URL:         eventURL(event.Slug, ""),
			Active:      bool(event.Active) && !bool(event.Closed),
			EndDate:     normalizeEndDate(event.EndDate),
		}
		setVolume(&market, float64(event.Volume), float64(event.Liquidity))
		return market
	}

	market := normalizeMarket(selected)
	if id := string(selected.ID); id == "" {
		market.ID = string(event.ID)
	}
	if title := strings.TrimSpace(event.Title); title != "" {
		market.Question = title
	}
	if description := strings.TrimSpace(event.Description); description != "" {
		market.Description = description
	}
	if market.EndDate == "" {
		market.EndDate = normalizeEndDate(event.EndDate)
	}
	if market.VolumeRaw == 0 && float64(event.Volume) > 0 {
		setVolume(&market, float64(event.Volume), market.LiquidityRaw)
	}
	if market.LiquidityRaw == 0 && float64(event.Liquidity) > 0 {
		setVolume(&market, market.VolumeRaw, float64(event.Liquidity))
	}

	tid := ""
	if len(event.Markets) > 1 {
		tid = string(selected.ID)
	}
	if event.Slug != "" {
		market.URL = eventURL(event.Slug, tid)
	}
	return market
}

// selectSubMarket prefers an id match, then the first active sub-market,
// then the highest volume.
func selectSubMarket(markets []gammaMarket, secondaryID string) (gammaMarket, bool) {
	if len(markets) == 0 {
		return gammaMarket{}, false
	}
	if secondaryID != "" {
		for _, m := range markets {
			if string(m.ID) == secondaryID {
				return m, true
			}
		}
	}
	for _, m := range markets {
		if bool(m.Active) {
			return m, true
		}
	}
	best := markets[0]
	for _, m := range markets[1:] {
		if m.volume() > best.volume() {
			best = m
		}
	}
	return best, true
}

// normalizeMarket builds a Market from a single upstream market.
func normalizeMarket(m gammaMarket) Market {
	market := Market{
		ID:          string(m.ID),
		Question:    strings.TrimSpace(m.Question),
		Description: strings.TrimSpace(m.Description),
		Outcomes:    extractOutcomes(m),
		Active:      bool(m.Active) && !bool(m.Closed),
		EndDate:     normalizeEndDate(m.EndDate),
		GroupLabel:  strings.TrimSpace(m.GroupItemTitle),
	}
	switch {
	case len(m.Events) > 0 && m.Events[0].Slug != "":
		market.URL = eventURL(m.Events[0].Slug, "")
	case m.Slug != "":
		market.URL = siteBaseURL + "/market/" + url.PathEscape(m.Slug)
	default:
		market.URL = siteBaseURL
	}
	setVolume(&market, m.volume(), m.liquidity())
	return market
}

func extractOutcomes(m gammaMarket) []Outcome {
	names := coerceList(m.Outcomes)
	prices := coerceList(m.OutcomePrices)
	if len(prices) == 0 {
		prices = coerceList(m.Prices)
	}

	count := min(len(names), len(prices))
	outcomes := make([]Outcome, 0, count)
	for i := 0; i < count; i++ {
		name := strings.TrimSpace(names[i])
		if name == "" {
			continue
		}
		p := clampProbability(parseProbability(prices[i]))
		outcomes = append(outcomes, Outcome{Name: name, Probability: p, Price: p})
	}
	if len(outcomes) == 0 {
		return fallbackOutcomes()
	}
	sortOutcomes(outcomes)
	return outcomes
}

func fallbackOutcomes() []Outcome {
	return []Outcome{
		{Name: "Yes", Probability: 0.5, Price: 0.5},
		{Name: "No", Probability: 0.5, Price: 0.5},
	}
}

func sortOutcomes(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Probability > outcomes[j].Probability
	})
}

func setVolume(market *Market, volume, liquidity float64) {
	market.VolumeRaw = finiteOrZero(volume)
	market.VolumeDisplay = formatUSD(market.VolumeRaw)
	market.LiquidityRaw = finiteOrZero(liquidity)
	market.LiquidityDisplay = ""
	if market.LiquidityRaw > 0 {
		market.LiquidityDisplay = formatUSD(market.LiquidityRaw)
	}
}

// formatUSD renders an amount as "$1.2m", "$3.4k" or "$56".
func formatUSD(value float64) string {
	amount := decimal.NewFromFloat(finiteOrZero(value))
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	switch {
	case amount.GreaterThanOrEqual(millionThreshold):
		return "$" + amount.Div(millionThreshold).StringFixed(1) + "m"
	case amount.GreaterThanOrEqual(thousandThreshold):
		return "$" + amount.Div(thousandThreshold).StringFixed(1) + "k"
	default:
		return "$" + amount.StringFixed(0)
	}
}

func finiteOrZero(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeEndDate returns YYYY-MM-DD when the upstream value parses, the raw
// value otherwise.
func normalizeEndDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return trimmed
}

func eventURL(slug, tid string) string {
	if slug == "" {
		return siteBaseURL
	}
	link := siteBaseURL + "/event/" + url.PathEscape(slug)
	if tid != "" {
		link += "?" + secondaryIDParam + "=" + url.QueryEscape(tid)
	}
	return link
}
