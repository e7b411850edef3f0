package marketlens

import (
	"fmt"
	"strings"
)

const quickSystemPrompt = `You are a disciplined prediction-market analyst.
You read market odds structurally and never invent facts you were not given.
Respond with one JSON object only. Do not wrap it in markdown.`

const deepSystemPrompt = `You are a prediction-market research analyst with live web search.
Search for the most recent news relevant to the market before answering and base your estimate on it.
Respond with one JSON object only. Do not wrap it in markdown.`

// marketBrief renders the market facts shared by both modes.
func marketBrief(m Market) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market question: %s\n", m.Question)
	if m.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", m.Description)
	}
	if m.GroupLabel != "" {
		fmt.Fprintf(&b, "Sub-market: %s\n", m.GroupLabel)
	}
	endDate := m.EndDate
	if endDate == "" {
		endDate = "undated"
	}
	fmt.Fprintf(&b, "End date: %s\n", endDate)
	fmt.Fprintf(&b, "Volume: %s\n", displayOr(m.VolumeDisplay, formatUSD(m.VolumeRaw)))
	fmt.Fprintf(&b, "Liquidity: %s\n", displayOr(m.LiquidityDisplay, "unknown"))
	b.WriteString("Outcomes:\n")
	for _, o := range m.Outcomes {
		fmt.Fprintf(&b, "- %s: probability %.1f%% (price $%.2f)\n", o.Name, o.Probability*100, o.Price)
	}
	return b.String()
}

func quickPrompt(m Market) string {
	var b strings.Builder
	b.WriteString(marketBrief(m))
	b.WriteString(`
Task:
1. Check whether the outcome probabilities sum to roughly 100%; flag any arbitrage gap.
2. Judge whether the leading outcome looks overconfident or underpriced given only these odds.
3. Give an opinion on how efficient this market looks.

Return JSON with exactly these fields:
- "summary": string, one or two sentences
- "recommendation": one of "BUY", "SELL", "HOLD", "AVOID"
- "confidenceScore": integer from 0 to 100
- "reasoning": array of short strings
`)
	return b.String()
}

func deepPrompt(m Market) string {
	var b strings.Builder
	b.WriteString(marketBrief(m))
	b.WriteString(`
Task:
1. Research recent news and data that bear on this question.
2. Estimate the real-world probability of the leading outcome.
3. Compare it with the market price and state the edge in percentage points.
4. List the key risks that could invalidate the estimate.
5. Judge the market's efficiency.

Return JSON with these fields:
- "summary": string
- "recommendation": one of "BUY", "SELL", "HOLD", "AVOID"
- "confidenceScore": integer from 0 to 100
- "reasoning": array of strings
- "estimatedProbability": string, for example "64%"
- "edgePercentage": string, for example "+6%"
- "keyRisks": array of strings
- "marketEfficiency": one of "LOW", "MEDIUM", "HIGH"
- "sources": array of {"title": string, "url": string} for the pages you relied on
`)
	return b.String()
}

func displayOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
