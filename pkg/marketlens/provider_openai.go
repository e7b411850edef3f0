package marketlens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider calls an OpenAI-compatible Chat Completions endpoint.
type OpenAIProvider struct {
	client openai.Client
	logger *slog.Logger
}

// NewOpenAIProvider builds an OpenAI provider. SDK retries are disabled so
// the caller's timeout is the only bound.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
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
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		logger: providerLogger(cfg.Logger),
	}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Generate sends one chat completion. Schema requests use strict json_schema
// output; web search requests use web_search_options and skip
// reasoning_effort, which search models reject.
func (p *OpenAIProvider) Generate(ctx context.Context, req ReasoningRequest) (ReasoningResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens) + int64(req.ThinkingBudget))
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "recommendation"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema.jsonSchema(true),
					Strict: openai.Bool(true),
				},
			},
		}
	}
	if req.WebSearch {
		params.WebSearchOptions = openai.ChatCompletionNewParamsWebSearchOptions{
			SearchContextSize: "medium",
		}
	} else if effort := openAIEffort(req.Effort); effort != "" {
		params.ReasoningEffort = effort
	}

	p.logger.Debug("openai request", "model", req.Model, "web_search", req.WebSearch, "schema", req.Schema != nil)
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ReasoningResult{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return ReasoningResult{Model: req.Model}, nil
	}

	message := completion.Choices[0].Message
	var citations []Source
	for _, annotation := range message.Annotations {
		citations = append(citations, Source{
			Title: annotation.URLCitation.Title,
			URL:   annotation.URLCitation.URL,
		})
	}
	model := strings.TrimSpace(completion.Model)
	if model == "" {
		model = req.Model
	}
	return ReasoningResult{
		Model:     model,
		Text:      strings.TrimSpace(message.Content),
		Citations: dedupeSources(citations),
	}, nil
}

func openAIEffort(effort ReasoningEffort) shared.ReasoningEffort {
	switch effort {
	case EffortLow:
		return shared.ReasoningEffortLow
	case EffortHigh:
		return shared.ReasoningEffortHigh
	default:
		return ""
	}
}

var _ ReasoningProvider = (*OpenAIProvider)(nil)
