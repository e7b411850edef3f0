package marketlens

import (
	"strings"
)

// Outcome is one possible resolution of a market. Price mirrors Probability.
type Outcome struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Price       float64 `json:"price"`
}

// MarketSource tags which fetch strategy produced a Market.
type MarketSource string

const (
	SourceEvents    MarketSource = "events"
	SourceMarkets   MarketSource = "markets"
	SourceMarketID  MarketSource = "market_id"
	SourceSearch    MarketSource = "search"
	SourceSynthetic MarketSource = "synthetic"
)

// Market is a canonical snapshot of one prediction market. Outcomes are never
// empty and are ordered by descending probability.
type Market struct {
	ID               string       `json:"id"`
	Question         string       `json:"question"`
	Description      string       `json:"description,omitempty"`
	Outcomes         []Outcome    `json:"outcomes"`
	URL              string       `json:"url"`
	VolumeRaw        float64      `json:"volumeRaw"`
	VolumeDisplay    string       `json:"volumeDisplay"`
	LiquidityRaw     float64      `json:"liquidityRaw,omitempty"`
	LiquidityDisplay string       `json:"liquidityDisplay,omitempty"`
	EndDate          string       `json:"endDate,omitempty"`
	Active           bool         `json:"active"`
	GroupLabel       string       `json:"groupLabel,omitempty"`
	Source           MarketSource `json:"source,omitempty"`
	Synthetic        bool         `json:"synthetic,omitempty"`
}

// MarketRef identifies a market by slug plus an optional sub-market id.
type MarketRef struct {
	Slug        string `json:"slug"`
	SecondaryID string `json:"secondaryId,omitempty"`
}

// AnalysisMode selects how a market is analyzed.
type AnalysisMode string

const (
	ModeQuick AnalysisMode = "QUICK"
	ModeDeep  AnalysisMode = "DEEP"
)

// ParseAnalysisMode accepts any casing; empty means QUICK.
func ParseAnalysisMode(value string) (AnalysisMode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", string(ModeQuick):
		return ModeQuick, nil
	case string(ModeDeep):
		return ModeDeep, nil
	default:
		return "", NewError(ErrCodeInvalidInput, "unknown analysis mode: "+value)
	}
}

// Action is the recommended trading stance.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionAvoid Action = "AVOID"
)

// Efficiency is the model's market-efficiency judgment.
type Efficiency string

const (
	EfficiencyLow    Efficiency = "LOW"
	EfficiencyMedium Efficiency = "MEDIUM"
	EfficiencyHigh   Efficiency = "HIGH"
)

// Source is a cited reference.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Recommendation is the canonical analysis result. The pointer and slice
// fields are only populated by DEEP analysis.
type Recommendation struct {
	Summary              string       `json:"summary"`
	Recommendation       Action       `json:"recommendation"`
	ConfidenceScore      int          `json:"confidenceScore"`
	Reasoning            []string     `json:"reasoning"`
	EstimatedProbability *string      `json:"estimatedProbability,omitempty"`
	EdgePercentage       *string      `json:"edgePercentage,omitempty"`
	KeyRisks             []string     `json:"keyRisks,omitempty"`
	MarketEfficiency     *Efficiency  `json:"marketEfficiency,omitempty"`
	Sources              []Source     `json:"sources,omitempty"`
	Mode                 AnalysisMode `json:"mode,omitempty"`
	Model                string       `json:"model,omitempty"`
	GeneratedAt          string       `json:"generatedAt,omitempty"`
}

// AnalysisRequest is the wire shape shared by every Recommender transport.
type AnalysisRequest struct {
	Market Market       `json:"market"`
	Mode   AnalysisMode `json:"mode"`
}
