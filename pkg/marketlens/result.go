package marketlens

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const noReasoningPlaceholder = "The model did not return any reasoning."

var requiredRecommendationFields = []string{"summary", "recommendation", "confidenceScore", "reasoning"}

// ParseOptions controls ParseRecommendation.
type ParseOptions struct {
	// Extended enables the DEEP-only optional fields.
	Extended bool
	// Citations are provider-attached sources merged after model-listed ones.
	Citations []Source
}

// ParseRecommendation turns raw model text into a validated Recommendation.
// Malformed JSON yields ErrCodeInvalidOutput; missing required fields yield
// ErrCodeValidation with Fields set.
func ParseRecommendation(raw string, opts ParseOptions) (*Recommendation, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, field := range requiredRecommendationFields {
		if value, ok := payload[field]; !ok || value == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &Error{
			Code:    ErrCodeValidation,
			Message: "model output missing required fields: " + strings.Join(missing, ", "),
			Fields:  missing,
		}
	}

	result := &Recommendation{
		Summary:         strings.TrimSpace(anyToString(payload["summary"])),
		Recommendation:  normalizeAction(payload["recommendation"]),
		ConfidenceScore: normalizeConfidence(payload["confidenceScore"]),
		Reasoning:       normalizeReasoning(payload["reasoning"]),
	}

	if !opts.Extended {
		return result, nil
	}
	result.EstimatedProbability = optionalString(payload["estimatedProbability"])
	result.EdgePercentage = optionalString(payload["edgePercentage"])
	result.KeyRisks = optionalStringList(payload["keyRisks"])
	result.MarketEfficiency = optionalEfficiency(payload["marketEfficiency"])
	sources := append(optionalSources(payload["sources"]), opts.Citations...)
	result.Sources = dedupeSources(sources)
	return result, nil
}

// extractJSONObject accepts fenced output and output wrapped in prose.
func extractJSONObject(raw string) (map[string]any, error) {
	cleaned := stripCodeFence(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && payload != nil {
		return payload, nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		payload = nil
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err == nil && payload != nil {
			return payload, nil
		}
	}
	return nil, NewError(ErrCodeInvalidOutput, "model output not valid JSON")
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	// Drop the opening fence along with any language tag.
	if newline := strings.Index(trimmed, "\n"); newline >= 0 {
		trimmed = trimmed[newline+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func normalizeAction(value any) Action {
	action := Action(strings.ToUpper(strings.TrimSpace(anyToString(value))))
	switch action {
	case ActionBuy, ActionSell, ActionHold, ActionAvoid:
		return action
	default:
		return ActionHold
	}
}

func normalizeConfidence(value any) int {
	var score float64
	switch val := value.(type) {
	case float64:
		score = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		score = parsed
	default:
		return 0
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(score))))
}

func normalizeReasoning(value any) []string {
	switch val := value.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if text := strings.TrimSpace(anyToString(item)); text != "" {
				out = append(out, text)
			}
		}
		if len(out) > 0 {
			return out
		}
	case string:
		if text := strings.TrimSpace(val); text != "" {
			return []string{text}
		}
	}
	return []string{noReasoningPlaceholder}
}

func optionalString(value any) *string {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

func optionalStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
			out = append(out, strings.TrimSpace(text))
		}
	}
	return out
}

func optionalEfficiency(value any) *Efficiency {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	efficiency := Efficiency(strings.ToUpper(strings.TrimSpace(text)))
	switch efficiency {
	case EfficiencyLow, EfficiencyMedium, EfficiencyHigh:
		return &efficiency
	default:
		return nil
	}
}

func optionalSources(value any) []Source {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []Source
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := entry["title"].(string)
		link, _ := entry["url"].(string)
		title, link = strings.TrimSpace(title), strings.TrimSpace(link)
		if title == "" || link == "" {
			continue
		}
		out = append(out, Source{Title: title, URL: link})
	}
	return out
}

// dedupeSources drops sources without a url and keeps the first entry seen
// for each url.
func dedupeSources(sources []Source) []Source {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, source := range sources {
		link := strings.TrimSpace(source.URL)
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		title := strings.TrimSpace(source.Title)
		if title == "" {
			title = link
		}
		out = append(out, Source{Title: title, URL: link})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
