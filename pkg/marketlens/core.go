package marketlens

import (
	"context"
	"log/slog"
	"time"
)

// Options controls Core initialization.
type Options struct {
	Logger *slog.Logger
	// Recommender handles analysis. Nil leaves Analyze unavailable.
	Recommender Recommender

	GammaBaseURL string
	GammaRate    float64
	GammaBurst   int
	FetchTimeout time.Duration
	HTTPClient   HTTPDoer
}

// Core wires the fetch and analysis pipelines together.
type Core struct {
	logger      *slog.Logger
	fetcher     *MarketFetcher
	recommender Recommender
}

// New initializes a Core.
func New(opts Options) *Core {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gamma := NewGammaClient(GammaOptions{
		BaseURL:    opts.GammaBaseURL,
		HTTPClient: opts.HTTPClient,
		RatePerSec: opts.GammaRate,
		Burst:      opts.GammaBurst,
		Logger:     logger,
	})
	return &Core{
		logger: logger,
		fetcher: NewMarketFetcher(FetcherOptions{
			Gamma:   gamma,
			Timeout: opts.FetchTimeout,
			Logger:  logger,
		}),
		recommender: opts.Recommender,
	}
}

// Logger returns the logger Core was built with.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// FetchMarket resolves input and fetches its market. It never fails.
func (c *Core) FetchMarket(ctx context.Context, input string) *Market {
	ref := ResolveMarketRef(input)
	c.logger.Debug("market reference resolved", "input", input, "slug", ref.Slug, "secondary_id", ref.SecondaryID)
	return c.fetcher.Fetch(ctx, ref)
}

// Analyze asks the configured Recommender for a recommendation.
func (c *Core) Analyze(ctx context.Context, req AnalysisRequest) (*Recommendation, error) {
	if c.recommender == nil {
		return nil, NewError(ErrCodeUnavailable, "analysis is not configured")
	}
	return c.recommender.Recommend(ctx, req)
}

// HasRecommender reports whether Analyze can succeed.
func (c *Core) HasRecommender() bool {
	return c.recommender != nil
}
