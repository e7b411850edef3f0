package marketlens

import (
	"strings"

	"github.com/google/uuid"
)

const syntheticIDPrefix = "mock-"

// syntheticMarket builds the placeholder shown when no upstream strategy
// produced data. Content depends only on the slug.
func syntheticMarket(slug string) *Market {
	key := strings.ToLower(slug)
	market := &Market{
		ID:          syntheticIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(slug)).String(),
		Description: "Placeholder market: live data for \"" + slug + "\" could not be loaded.",
		URL:         eventURL(slug, ""),
		Active:      true,
		Source:      SourceSynthetic,
		Synthetic:   true,
	}

	switch {
	case strings.Contains(key, "btc") || strings.Contains(key, "bitcoin"):
		market.Question = "Will Bitcoin trade above $100,000 by the end of the year?"
		market.Outcomes = []Outcome{
			{Name: "Yes", Probability: 0.62, Price: 0.62},
			{Name: "No", Probability: 0.38, Price: 0.38},
		}
		setVolume(market, 4_250_000, 310_000)
	case strings.Contains(key, "election") || strings.Contains(key, "trump"):
		market.Question = "Who will win the next US presidential election?"
		market.Outcomes = []Outcome{
			{Name: "Republican", Probability: 0.52, Price: 0.52},
			{Name: "Democrat", Probability: 0.45, Price: 0.45},
			{Name: "Other", Probability: 0.03, Price: 0.03},
		}
		setVolume(market, 18_700_000, 1_200_000)
	default:
		market.Question = "Will " + humanizeSlug(slug) + "?"
		market.Outcomes = fallbackOutcomes()
		setVolume(market, 125_000, 18_500)
	}
	return market
}

func humanizeSlug(slug string) string {
	words := strings.Fields(slugWords(slug))
	if len(words) == 0 {
		return "this market resolve Yes"
	}
	if len(words) > 1 && strings.EqualFold(words[0], "will") {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
