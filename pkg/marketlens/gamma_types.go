package marketlens

import "encoding/json"

// gammaEvent is an upstream event grouping one or more sub-markets.
type gammaEvent struct {
	ID          flexString    `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Active      flexBool      `json:"active"`
	Closed      flexBool      `json:"closed"`
	EndDate     string        `json:"endDate"`
	Volume      flexFloat     `json:"volume"`
	Liquidity   flexFloat     `json:"liquidity"`
	Markets     []gammaMarket `json:"markets"`
}

// gammaMarket is a single upstream market. Outcomes and prices arrive as a
// list, a JSON-encoded list or a CSV string depending on the endpoint.
type gammaMarket struct {
	ID             flexString      `json:"id"`
	Slug           string          `json:"slug"`
	Question       string          `json:"question"`
	Description    string          `json:"description"`
	Outcomes       json.RawMessage `json:"outcomes"`
	OutcomePrices  json.RawMessage `json:"outcomePrices"`
	Prices         json.RawMessage `json:"prices"`
	Volume         flexFloat       `json:"volume"`
	VolumeNum      flexFloat       `json:"volumeNum"`
	Liquidity      flexFloat       `json:"liquidity"`
	LiquidityNum   flexFloat       `json:"liquidityNum"`
	EndDate        string          `json:"endDate"`
	Active         flexBool        `json:"active"`
	Closed         flexBool        `json:"closed"`
	GroupItemTitle string          `json:"groupItemTitle"`
	Events         []gammaEventRef `json:"events"`
}

type gammaEventRef struct {
	Slug string `json:"slug"`
}

func (m gammaMarket) volume() float64 {
	if m.VolumeNum > 0 {
		return float64(m.VolumeNum)
	}
	return float64(m.Volume)
}

func (m gammaMarket) liquidity() float64 {
	if m.LiquidityNum > 0 {
		return float64(m.LiquidityNum)
	}
	return float64(m.Liquidity)
}
