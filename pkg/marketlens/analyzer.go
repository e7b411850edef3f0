package marketlens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultQuickTimeout = 60 * time.Second
	DefaultDeepTimeout  = 180 * time.Second

	quickThinkingBudget = 1024
	deepThinkingBudget  = 8192

	// Answer budgets, not counting thinking tokens.
	quickMaxTokens = 2048
	deepMaxTokens  = 8192
)

// Recommender is the boundary between callers and whatever produces
// recommendations: a direct provider call or a proxied one.
type Recommender interface {
	Recommend(ctx context.Context, req AnalysisRequest) (*Recommendation, error)
}

// ModelSet names the model used for each mode.
type ModelSet struct {
	Quick string
	Deep  string
}

func (s ModelSet) forMode(mode AnalysisMode) string {
	if mode == ModeDeep {
		return s.Deep
	}
	return s.Quick
}

// analysisVariant owns one mode's request configuration and its parsing path.
type analysisVariant interface {
	mode() AnalysisMode
	request(m Market, model string) ReasoningRequest
	parse(result ReasoningResult) (*Recommendation, error)
}

type quickVariant struct{}

func (quickVariant) mode() AnalysisMode { return ModeQuick }

func (quickVariant) request(m Market, model string) ReasoningRequest {
	return ReasoningRequest{
		Model:          model,
		SystemPrompt:   quickSystemPrompt,
		UserPrompt:     quickPrompt(m),
		Schema:         recommendationSchema(),
		SchemaName:     "market_recommendation",
		ThinkingBudget: quickThinkingBudget,
		Effort:         EffortLow,
		MaxTokens:      quickMaxTokens,
	}
}

func (quickVariant) parse(result ReasoningResult) (*Recommendation, error) {
	return ParseRecommendation(result.Text, ParseOptions{})
}

type deepVariant struct{}

func (deepVariant) mode() AnalysisMode { return ModeDeep }

// Search grounding and strict schemas cannot be combined, so DEEP relies on
// the prompt for shape.
func (deepVariant) request(m Market, model string) ReasoningRequest {
	return ReasoningRequest{
		Model:          model,
		SystemPrompt:   deepSystemPrompt,
		UserPrompt:     deepPrompt(m),
		WebSearch:      true,
		ThinkingBudget: deepThinkingBudget,
		Effort:         EffortHigh,
		MaxTokens:      deepMaxTokens,
	}
}

func (deepVariant) parse(result ReasoningResult) (*Recommendation, error) {
	return ParseRecommendation(result.Text, ParseOptions{Extended: true, Citations: result.Citations})
}

func variantFor(mode AnalysisMode) (analysisVariant, error) {
	switch mode {
	case ModeQuick:
		return quickVariant{}, nil
	case ModeDeep:
		return deepVariant{}, nil
	default:
		return nil, NewError(ErrCodeInvalidInput, "unknown analysis mode: "+string(mode))
	}
}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	Provider     ReasoningProvider
	Models       ModelSet
	QuickTimeout time.Duration
	DeepTimeout  time.Duration
	Logger       *slog.Logger
}

// Analyzer calls a ReasoningProvider directly. It is the Recommender used
// inside the proxy and by clients that hold a provider key themselves.
type Analyzer struct {
	provider     ReasoningProvider
	models       ModelSet
	quickTimeout time.Duration
	deepTimeout  time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewAnalyzer builds an Analyzer. Unset models fall back to the provider's defaults.
func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	if opts.Provider == nil {
		return nil, NewError(ErrCodeInvalidInput, "reasoning provider is required")
	}
	defaults := DefaultModels(opts.Provider.Name())
	models := opts.Models
	if strings.TrimSpace(models.Quick) == "" {
		models.Quick = defaults.Quick
	}
	if strings.TrimSpace(models.Deep) == "" {
		models.Deep = defaults.Deep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		provider:     opts.Provider,
		models:       models,
		quickTimeout: defaultDuration(opts.QuickTimeout, DefaultQuickTimeout),
		deepTimeout:  defaultDuration(opts.DeepTimeout, DefaultDeepTimeout),
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Recommend analyzes req.Market in req.Mode. Failures are always returned as
// *Error and never replaced with a placeholder recommendation.
func (a *Analyzer) Recommend(ctx context.Context, req AnalysisRequest) (*Recommendation, error) {
	mode, err := ParseAnalysisMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if err := validateMarket(req.Market); err != nil {
		return nil, err
	}
	variant, err := variantFor(mode)
	if err != nil {
		return nil, err
	}

	timeout := a.quickTimeout
	if mode == ModeDeep {
		timeout = a.deepTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := a.models.forMode(mode)
	start := a.now()
	result, err := a.provider.Generate(callCtx, variant.request(req.Market, model))
	fields := []any{
		"mode", mode,
		"provider", a.provider.Name(),
		"model", model,
		"market_id", req.Market.ID,
		"duration_ms", a.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		wrapped := classifyCallError(ErrCodeProvider, "reasoning request", err)
		a.logger.Error("analysis request failed", append(fields, "error_code", wrapped.Code, "err", err)...)
		return nil, wrapped
	}
	if strings.TrimSpace(result.Text) == "" {
		a.logger.Error("analysis returned empty response", fields...)
		return nil, NewError(ErrCodeEmptyResponse, "empty response from reasoning provider")
	}

	recommendation, err := variant.parse(result)
	if err != nil {
		a.logger.Error("analysis output rejected", append(fields, "error_code", ErrorCodeOf(err), "err", err)...)
		return nil, err
	}
	recommendation.Mode = variant.mode()
	recommendation.Model = result.Model
	if recommendation.Model == "" {
		recommendation.Model = model
	}
	recommendation.GeneratedAt = a.now().UTC().Format(time.RFC3339)
	a.logger.Info("analysis completed", append(fields,
		"recommendation", recommendation.Recommendation,
		"confidence", recommendation.ConfidenceScore,
		"sources", len(recommendation.Sources),
	)...)
	return recommendation, nil
}

func validateMarket(m Market) error {
	var missing []string
	if strings.TrimSpace(m.Question) == "" {
		missing = append(missing, "market.question")
	}
	if len(m.Outcomes) == 0 {
		missing = append(missing, "market.outcomes")
	}
	if len(missing) == 0 {
		return nil
	}
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: "market is missing " + strings.Join(missing, ", "),
		Fields:  missing,
	}
}

var _ Recommender = (*Analyzer)(nil)
