package marketlens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// DefaultGammaBaseURL is Polymarket's public market-data API.
	DefaultGammaBaseURL = "https://gamma-api.polymarket.com"

	defaultGammaRatePerSec = 5
	defaultGammaBurst      = 5
	maxGammaBodyBytes      = 8 << 20
)

// errNoData marks an upstream call that succeeded but returned nothing usable.
var errNoData = errors.New("no data returned")

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// GammaOptions configures a GammaClient.
type GammaOptions struct {
	BaseURL    string
	HTTPClient HTTPDoer
	// RatePerSec and Burst bound outbound request rate.
	RatePerSec float64
	Burst      int
	Logger     *slog.Logger
}

// GammaClient reads events and markets from the Gamma API. Requests share one
// limiter; timeouts come from the caller's context.
type GammaClient struct {
	baseURL string
	client  HTTPDoer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGammaClient builds a client with production defaults for unset options.
func NewGammaClient(opts GammaOptions) *GammaClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGammaBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	ratePerSec := opts.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = defaultGammaRatePerSec
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultGammaBurst
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GammaClient{
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logger,
	}
}

// EventsBySlug queries the events collection filtered by slug.
func (c *GammaClient) EventsBySlug(ctx context.Context, slug string) ([]gammaEvent, error) {
	var events []gammaEvent
	if err := c.get(ctx, "/events", url.Values{"slug": {slug}}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarketsBySlug queries the markets collection filtered by slug.
func (c *GammaClient) MarketsBySlug(ctx context.Context, slug string) ([]gammaMarket, error) {
	var markets []gammaMarket
	if err := c.get(ctx, "/markets", url.Values{"slug": {slug}}, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// MarketByID fetches one market directly.
func (c *GammaClient) MarketByID(ctx context.Context, id string) (*gammaMarket, error) {
	var market gammaMarket
	if err := c.get(ctx, "/markets/"+url.PathEscape(id), nil, &market); err != nil {
		return nil, err
	}
	if market.ID == "" && market.Question == "" {
		return nil, errNoData
	}
	return &market, nil
}

// SearchMarkets runs a volume-ordered text search over markets.
func (c *GammaClient) SearchMarkets(ctx context.Context, query string, limit int) ([]gammaMarket, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{
		"search":    {query},
		"order":     {"volumeNum"},
		"ascending": {"false"},
		"limit":     {fmt.Sprintf("%d", limit)},
	}
	var markets []gammaMarket
	if err := c.get(ctx, "/markets", params, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

func (c *GammaClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGammaBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gamma %s: status %d: %s", path, resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	c.logger.Debug("gamma request completed", "path", path, "status", resp.StatusCode, "bytes", len(body))
	return nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
