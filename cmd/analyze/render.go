package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"marketlens/pkg/marketlens"
)

func renderMarket(w io.Writer, market *marketlens.Market) error {
	fmt.Fprintf(w, "\n%s\n", market.Question)
	if market.GroupLabel != "" {
		fmt.Fprintf(w, "  option: %s\n", market.GroupLabel)
	}
	fmt.Fprintf(w, "  %s\n", market.URL)
	fmt.Fprintf(w, "  volume %s", market.VolumeDisplay)
	if market.LiquidityDisplay != "" {
		fmt.Fprintf(w, " | liquidity %s", market.LiquidityDisplay)
	}
	if market.EndDate != "" {
		fmt.Fprintf(w, " | ends %s", market.EndDate)
	}
	fmt.Fprintln(w)
	if market.Synthetic {
		fmt.Fprintln(w, "  (market data unavailable; showing placeholder odds)")
	}

	table := tablewriter.NewWriter(w)
	table.Header("Outcome", "Probability", "Price")
	for _, outcome := range market.Outcomes {
		if err := table.Append(
			outcome.Name,
			fmt.Sprintf("%.1f%%", outcome.Probability*100),
			fmt.Sprintf("$%.2f", outcome.Price),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderRecommendation(w io.Writer, rec *marketlens.Recommendation) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	rows := [][]string{
		{"Recommendation", string(rec.Recommendation)},
		{"Confidence", fmt.Sprintf("%d/100", rec.ConfidenceScore)},
		{"Summary", rec.Summary},
	}
	if rec.EstimatedProbability != nil {
		rows = append(rows, []string{"Estimated probability", *rec.EstimatedProbability})
	}
	if rec.EdgePercentage != nil {
		rows = append(rows, []string{"Edge", *rec.EdgePercentage})
	}
	if rec.MarketEfficiency != nil {
		rows = append(rows, []string{"Market efficiency", string(*rec.MarketEfficiency)})
	}
	if rec.Model != "" {
		rows = append(rows, []string{"Model", fmt.Sprintf("%s (%s)", rec.Model, rec.Mode)})
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	writeList(w, "Reasoning", rec.Reasoning)
	writeList(w, "Key risks", rec.KeyRisks)
	if len(rec.Sources) > 0 {
		sources := make([]string, 0, len(rec.Sources))
		for _, source := range rec.Sources {
			sources = append(sources, fmt.Sprintf("%s <%s>", source.Title, source.URL))
		}
		writeList(w, "Sources", sources)
	}
	return nil
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(item))
	}
}
