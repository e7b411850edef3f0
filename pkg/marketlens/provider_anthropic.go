package marketlens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicMaxTokens = 4096
	anthropicMaxSearches      = 5
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	logger *slog.Logger
}

// NewAnthropicProvider builds an Anthropic provider with SDK retries disabled.
func NewAnthropicProvider(cfg ProviderConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		logger: providerLogger(cfg.Logger),
	}
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Generate sends one message. The API has no strict schema mode, so a schema
// is spelled out in the system prompt instead.
func (p *AnthropicProvider) Generate(ctx context.Context, req ReasoningRequest) (ReasoningResult, error) {
	system := req.SystemPrompt
	if req.Schema != nil {
		system += "\n\nRespond with a single JSON object matching this JSON Schema and nothing else:\n" + req.Schema.prettyJSON()
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	// Extended thinking needs at least 1024 tokens and must fit under max_tokens.
	if req.ThinkingBudget >= 1024 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
		params.MaxTokens = maxTokens + int64(req.ThinkingBudget)
	}
	if req.WebSearch {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(anthropicMaxSearches),
			},
		}}
	}

	p.logger.Debug("anthropic request", "model", req.Model, "web_search", req.WebSearch, "schema", req.Schema != nil)
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ReasoningResult{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	var citations []Source
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		text.WriteString(block.Text)
		for _, citation := range block.Citations {
			if citation.URL != "" {
				citations = append(citations, Source{Title: citation.Title, URL: citation.URL})
			}
		}
	}

	model := strings.TrimSpace(string(message.Model))
	if model == "" {
		model = req.Model
	}
	return ReasoningResult{
		Model:     model,
		Text:      strings.TrimSpace(text.String()),
		Citations: dedupeSources(citations),
	}, nil
}

var _ ReasoningProvider = (*AnthropicProvider)(nil)
