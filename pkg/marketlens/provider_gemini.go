package marketlens

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiMaxToken = 16384
)

var newGeminiClient = genai.NewClient

// GeminiProvider calls the Gemini native API.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiProvider builds a Gemini provider. An empty base URL uses the
// public Gemini endpoint.
func NewGeminiProvider(cfg ProviderConfig) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: cfg.HTTPClient,
		logger:     providerLogger(cfg.Logger),
	}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Generate runs one GenerateContent call. A schema turns on JSON mode; web
// search attaches the GoogleSearch tool and collects grounding citations.
func (p *GeminiProvider) Generate(ctx context.Context, req ReasoningRequest) (ReasoningResult, error) {
	clientConfig, err := buildGeminiClientConfig(p.baseURL, p.apiKey)
	if err != nil {
		return ReasoningResult{}, err
	}
	clientConfig.HTTPClient = p.httpClient
	client, err := newGeminiClient(ctx, clientConfig)
	if err != nil {
		return ReasoningResult{}, fmt.Errorf("create gemini client failed: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGeminiMaxToken
	}
	if req.ThinkingBudget > 0 {
		maxTokens += int(req.ThinkingBudget)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:     genai.Ptr(float32(0.2)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toGeminiSchema(req.Schema)
	}
	if req.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(req.ThinkingBudget)}
	}

	p.logger.Debug("gemini request", "model", req.Model, "web_search", req.WebSearch, "schema", req.Schema != nil)
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), config)
	if err != nil {
		return ReasoningResult{}, fmt.Errorf("gemini generate content failed: %w", err)
	}

	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = req.Model
	}
	return ReasoningResult{
		Model:     model,
		Text:      strings.TrimSpace(response.Text()),
		Citations: geminiCitations(response),
	}, nil
}

func geminiCitations(response *genai.GenerateContentResponse) []Source {
	if response == nil {
		return nil
	}
	var sources []Source
	for _, candidate := range response.Candidates {
		if candidate == nil || candidate.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			sources = append(sources, Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
		}
	}
	return dedupeSources(sources)
}

func toGeminiSchema(node *SchemaNode) *genai.Schema {
	if node == nil {
		return nil
	}
	schema := &genai.Schema{
		Type:        geminiType(node.Type),
		Description: node.Description,
		Enum:        node.Enum,
		Required:    node.Required,
		Minimum:     node.Minimum,
		Maximum:     node.Maximum,
		Items:       toGeminiSchema(node.Items),
	}
	if len(node.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(node.Properties))
		for name, child := range node.Properties {
			schema.Properties[name] = toGeminiSchema(child)
		}
	}
	return schema
}

func geminiType(kind string) genai.Type {
	switch kind {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(endpoint)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

// parseGeminiBaseURLAndVersion splits an endpoint like
// https://host/prefix/v1beta into "https://host/prefix" and "v1beta".
func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = defaultGeminiBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	var segments []string
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		segments = strings.Split(path, "/")
	}
	apiVersion := "v1beta"
	prefix := segments
	for idx, segment := range segments {
		if strings.HasPrefix(strings.ToLower(segment), "v1") {
			apiVersion = segment
			prefix = segments[:idx]
			break
		}
	}

	// genai joins BaseURL, version and method with "/", so no trailing slash.
	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	if basePath := strings.Join(prefix, "/"); basePath != "" {
		baseURL += "/" + basePath
	}
	return baseURL, apiVersion, nil
}
