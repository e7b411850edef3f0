package mobile

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketlens/pkg/marketlens"
)

const defaultProxyTimeout = 200 * time.Second

// Client wraps the marketlens core for gomobile bindings. Every method takes
// and returns JSON strings.
//
// At most one analysis is in flight: starting a new one cancels the previous
// one, and a result that arrives after being superseded is discarded.
type Client struct {
	core *marketlens.Core

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64
	activeID   string
}

// clientConfig is the JSON accepted by NewClient. An apiKey selects direct
// provider calls; otherwise analysis goes through the proxy endpoint.
type clientConfig struct {
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"accessKey"`
	Provider     string `json:"provider"`
	APIKey       string `json:"apiKey"`
	QuickModel   string `json:"quickModel"`
	DeepModel    string `json:"deepModel"`
	GammaBaseURL string `json:"gammaBaseUrl"`
}

type analysisResult struct {
	AnalysisID     string                     `json:"analysisId"`
	Recommendation *marketlens.Recommendation `json:"recommendation"`
}

// NewClient builds a client from configJSON. An empty string gives a client
// that can fetch markets but not analyze them.
func NewClient(configJSON string) (*Client, error) {
	var cfg clientConfig
	if strings.TrimSpace(configJSON) != "" {
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return nil, marketlens.WrapError(marketlens.ErrCodeInvalidInput, "invalid client config", err)
		}
	}
	recommender, err := newRecommender(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		core: marketlens.New(marketlens.Options{
			Recommender:  recommender,
			GammaBaseURL: cfg.GammaBaseURL,
		}),
	}, nil
}

func newRecommender(cfg clientConfig) (marketlens.Recommender, error) {
	if strings.TrimSpace(cfg.APIKey) != "" {
		provider, err := marketlens.NewProvider(marketlens.ProviderConfig{
			Name:   cfg.Provider,
			APIKey: cfg.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return marketlens.NewAnalyzer(marketlens.AnalyzerOptions{
			Provider: provider,
			Models:   marketlens.ModelSet{Quick: cfg.QuickModel, Deep: cfg.DeepModel},
		})
	}
	if strings.TrimSpace(cfg.Endpoint) != "" {
		return marketlens.NewProxyClient(marketlens.ProxyClientOptions{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			Timeout:   defaultProxyTimeout,
		})
	}
	return nil, nil
}

// FetchMarketJSON resolves a market URL or slug and returns the Market as
// JSON. Upstream failures yield a synthetic market rather than an error.
func (c *Client) FetchMarketJSON(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", marketlens.NewError(marketlens.ErrCodeInvalidInput, "market url is required")
	}
	return marshalJSON(c.core.FetchMarket(context.Background(), input))
}

// AnalyzeJSON analyzes the Market in marketJSON and returns
// {"analysisId", "recommendation"}. mode is QUICK or DEEP in any casing.
func (c *Client) AnalyzeJSON(marketJSON, mode string) (string, error) {
	var market marketlens.Market
	if err := json.Unmarshal([]byte(marketJSON), &market); err != nil {
		return "", marketlens.WrapError(marketlens.ErrCodeInvalidInput, "invalid market JSON", err)
	}
	parsedMode, err := marketlens.ParseAnalysisMode(mode)
	if err != nil {
		return "", err
	}

	ctx, generation, id := c.begin()
	defer c.finish(generation)

	recommendation, err := c.core.Analyze(ctx, marketlens.AnalysisRequest{Market: market, Mode: parsedMode})
	if !c.isCurrent(generation) {
		return "", marketlens.NewError(marketlens.ErrCodeCanceled, "analysis superseded")
	}
	if err != nil {
		return "", err
	}
	return marshalJSON(analysisResult{AnalysisID: id, Recommendation: recommendation})
}

// AnalyzeURLJSON fetches the market for input and analyzes it.
func (c *Client) AnalyzeURLJSON(input, mode string) (string, error) {
	marketJSON, err := c.FetchMarketJSON(input)
	if err != nil {
		return "", err
	}
	return c.AnalyzeJSON(marketJSON, mode)
}

// Cancel aborts the in-flight analysis, if any.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.activeID = ""
}

// ActiveAnalysisID returns the id of the in-flight analysis or "".
func (c *Client) ActiveAnalysisID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// CanAnalyze reports whether the client was configured with a proxy
// endpoint or a provider key.
func (c *Client) CanAnalyze() bool {
	return c.core.HasRecommender()
}

func (c *Client) begin() (context.Context, uint64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.generation++
	c.activeID = uuid.NewString()
	return ctx, c.generation, c.activeID
}

func (c *Client) finish(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.activeID = ""
}

func (c *Client) isCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == generation
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
