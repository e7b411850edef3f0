package marketlens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerceList decodes a loosely typed upstream list. It accepts a JSON array,
// a JSON-encoded string holding an array, or a comma-separated string.
// Anything else yields nil.
func coerceList(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var items []any
	if err := json.Unmarshal(trimmed, &items); err == nil {
		return listToStrings(items)
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &items); err == nil {
			return listToStrings(items)
		}
		text = strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
	}

	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func listToStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.TrimSpace(anyToString(item)))
	}
	return out
}

func anyToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// parseProbability reads a price token; unparsable tokens are NaN so that
// clampProbability maps them to 0.
func parseProbability(token string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return math.NaN()
	}
	return value
}

// clampProbability maps p into [0,1]. Values above 1.01 are read as a 0-100
// percentage.
func clampProbability(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p > 1.01 {
		p = p / 100
	}
	return math.Max(0, math.Min(1, p))
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(value)
		return nil
	}
	var value float64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*f = flexFloat(value)
	return nil
}

// flexBool accepts a JSON bool or the strings "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	*b = flexBool(strings.EqualFold(trimmed, "true") || trimmed == "1")
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(text))
		return nil
	}
	*s = flexString(string(trimmed))
	return nil
}
