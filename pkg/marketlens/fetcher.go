package marketlens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds each upstream call.
const DefaultFetchTimeout = 12 * time.Second

// FetcherOptions configures a MarketFetcher.
type FetcherOptions struct {
	Gamma   *GammaClient
	Timeout time.Duration
	Logger  *slog.Logger
}

// MarketFetcher resolves a MarketRef into a Market by trying upstream
// strategies in order.
type MarketFetcher struct {
	gamma   *GammaClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewMarketFetcher builds a fetcher. A nil Gamma client uses production defaults.
func NewMarketFetcher(opts FetcherOptions) *MarketFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gamma := opts.Gamma
	if gamma == nil {
		gamma = NewGammaClient(GammaOptions{Logger: logger})
	}
	return &MarketFetcher{
		gamma:   gamma,
		timeout: defaultDuration(opts.Timeout, DefaultFetchTimeout),
		logger:  logger,
	}
}

type fetchAttempt struct {
	source MarketSource
	fn     func(ctx context.Context) (*Market, error)
}

// Fetch always returns a Market. When every strategy fails it returns a
// synthetic placeholder flagged with Synthetic.
func (f *MarketFetcher) Fetch(ctx context.Context, ref MarketRef) *Market {
	market, errorsList := firstSuccess(ctx, f.timeout, f.buildAttempts(ref), func(source MarketSource, err error) {
		f.logger.Warn("market fetch attempt failed", "source", source, "slug", ref.Slug, "err", err)
	})
	if market != nil {
		f.logger.Info("market fetched", "source", market.Source, "slug", ref.Slug, "id", market.ID)
		return market
	}

	f.logger.Warn("all market fetch strategies failed; using synthetic market",
		"slug", ref.Slug,
		"errors", strings.Join(errorsList, "; "),
	)
	return syntheticMarket(ref.Slug)
}

func (f *MarketFetcher) buildAttempts(ref MarketRef) []fetchAttempt {
	attempts := []fetchAttempt{
		{SourceEvents, func(ctx context.Context) (*Market, error) {
			events, err := f.gamma.EventsBySlug(ctx, ref.Slug)
			if err != nil {
				return nil, err
			}
			if len(events) == 0 {
				return nil, errNoData
			}
			market := normalizeEvent(events[0], ref.SecondaryID)
			return &market, nil
		}},
		{SourceMarkets, func(ctx context.Context) (*Market, error) {
			markets, err := f.gamma.MarketsBySlug(ctx, ref.Slug)
			if err != nil {
				return nil, err
			}
			if len(markets) == 0 {
				return nil, errNoData
			}
			market := normalizeMarket(markets[0])
			return &market, nil
		}},
	}
	if ref.SecondaryID != "" {
		attempts = append(attempts, fetchAttempt{SourceMarketID, func(ctx context.Context) (*Market, error) {
			raw, err := f.gamma.MarketByID(ctx, ref.SecondaryID)
			if err != nil {
				return nil, err
			}
			market := normalizeMarket(*raw)
			return &market, nil
		}})
	}
	attempts = append(attempts, fetchAttempt{SourceSearch, func(ctx context.Context) (*Market, error) {
		markets, err := f.gamma.SearchMarkets(ctx, slugWords(ref.Slug), 1)
		if err != nil {
			return nil, err
		}
		if len(markets) == 0 {
			return nil, errNoData
		}
		market := normalizeMarket(markets[0])
		return &market, nil
	}})
	return attempts
}

// firstSuccess runs attempts one after another, each in its own timeout
// scope, and returns the first Market produced. Failures are reported through
// onFailure and collected in the returned list.
func firstSuccess(ctx context.Context, timeout time.Duration, attempts []fetchAttempt, onFailure func(MarketSource, error)) (*Market, []string) {
	var errorsList []string
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			errorsList = append(errorsList, fmt.Sprintf("%s: %v", attempt.source, err))
			break
		}
		market, err := runAttempt(ctx, timeout, attempt)
		if err == nil && market != nil {
			market.Source = attempt.source
			return market, errorsList
		}
		if err == nil {
			err = errNoData
		}
		errorsList = append(errorsList, fmt.Sprintf("%s: %v", attempt.source, err))
		if onFailure != nil {
			onFailure(attempt.source, err)
		}
	}
	return nil, errorsList
}

func runAttempt(ctx context.Context, timeout time.Duration, attempt fetchAttempt) (*Market, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return attempt.fn(attemptCtx)
}

func slugWords(slug string) string {
	return strings.Join(strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	}), " ")
}

func defaultDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
