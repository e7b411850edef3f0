package marketlens

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// ReasoningEffort is a coarse reasoning budget hint for providers that take
// one instead of a token budget.
type ReasoningEffort string

const (
	EffortLow  ReasoningEffort = "low"
	EffortHigh ReasoningEffort = "high"
)

// SchemaNode is a provider-neutral description of a JSON output schema.
type SchemaNode struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Properties  map[string]*SchemaNode `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *SchemaNode            `json:"items,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
}

// ReasoningRequest is one call to a reasoning provider. Schema and WebSearch
// are mutually exclusive.
type ReasoningRequest struct {
	Model          string
	SystemPrompt   string
	UserPrompt     string
	Schema         *SchemaNode
	SchemaName     string
	WebSearch      bool
	ThinkingBudget int32
	Effort         ReasoningEffort
	// MaxTokens caps the visible answer. Providers whose limit also counts
	// thinking tokens add ThinkingBudget on top.
	MaxTokens int
}

// ReasoningResult is the raw provider output.
type ReasoningResult struct {
	Model     string
	Text      string
	Citations []Source
}

// ReasoningProvider is an opaque remote reasoning capability.
type ReasoningProvider interface {
	Name() string
	Generate(ctx context.Context, req ReasoningRequest) (ReasoningResult, error)
}

// Provider names accepted by NewProvider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig selects and configures a ReasoningProvider.
type ProviderConfig struct {
	Name       string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewProvider builds the named provider.
func NewProvider(cfg ProviderConfig) (ReasoningProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, NewError(ErrCodeInvalidInput, "provider api key is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", ProviderGemini:
		return NewGeminiProvider(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, NewError(ErrCodeUnsupported, "unknown provider: "+cfg.Name)
	}
}

// DefaultModels returns the QUICK and DEEP models used when none are configured.
func DefaultModels(provider string) ModelSet {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return ModelSet{Quick: "o4-mini", Deep: "gpt-4o-search-preview"}
	case ProviderAnthropic:
		return ModelSet{Quick: "claude-sonnet-4-5", Deep: "claude-opus-4-1"}
	default:
		return ModelSet{Quick: "gemini-2.5-flash", Deep: "gemini-2.5-pro"}
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}

// recommendationSchema is the strict QUICK output contract.
func recommendationSchema() *SchemaNode {
	return &SchemaNode{
		Type: "object",
		Properties: map[string]*SchemaNode{
			"summary": {Type: "string", Description: "One or two sentence verdict."},
			"recommendation": {
				Type: "string",
				Enum: []string{string(ActionBuy), string(ActionSell), string(ActionHold), string(ActionAvoid)},
			},
			"confidenceScore": {
				Type:    "integer",
				Minimum: float64Ptr(0),
				Maximum: float64Ptr(100),
			},
			"reasoning": {
				Type:  "array",
				Items: &SchemaNode{Type: "string"},
			},
		},
		Required: append([]string(nil), requiredRecommendationFields...),
	}
}

// jsonSchema renders a SchemaNode as a JSON Schema document. Strict mode
// forbids additional properties on every object.
func (n *SchemaNode) jsonSchema(strict bool) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"type": n.Type}
	if n.Description != "" {
		out["description"] = n.Description
	}
	if len(n.Enum) > 0 {
		out["enum"] = n.Enum
	}
	// Strict structured outputs reject numeric bounds.
	if !strict {
		if n.Minimum != nil {
			out["minimum"] = *n.Minimum
		}
		if n.Maximum != nil {
			out["maximum"] = *n.Maximum
		}
	}
	if n.Items != nil {
		out["items"] = n.Items.jsonSchema(strict)
	}
	if len(n.Properties) > 0 {
		props := make(map[string]any, len(n.Properties))
		for name, child := range n.Properties {
			props[name] = child.jsonSchema(strict)
		}
		out["properties"] = props
		if len(n.Required) > 0 {
			out["required"] = n.Required
		}
		if strict {
			out["additionalProperties"] = false
		}
	}
	return out
}

func (n *SchemaNode) prettyJSON() string {
	data, err := json.MarshalIndent(n.jsonSchema(false), "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func providerLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
