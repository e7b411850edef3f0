package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketlens/internal/config"
	"marketlens/internal/logging"
	"marketlens/pkg/marketlens"
)

// proxyTimeoutMargin keeps the client waiting slightly longer than the
// proxy's own DEEP timeout so the proxy gets to report it.
const proxyTimeoutMargin = 15 * time.Second

var errUsage = errors.New("usage: analyze [flags] <market url or slug>")

type options struct {
	configPath string
	mode       string
	direct     bool
	marketOnly bool
	verbose    bool
	input      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.mode, "mode", "quick", "analysis mode: quick|deep")
	fs.BoolVar(&opts.direct, "direct", false, "call the provider directly instead of the proxy")
	fs.BoolVar(&opts.marketOnly, "market-only", false, "fetch and print the market without analysis")
	fs.BoolVar(&opts.verbose, "verbose", false, "set log level to debug")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		return options{}, errUsage
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	mode, err := marketlens.ParseAnalysisMode(opts.mode)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, closer, err := logging.New(logging.Options{
		Dir:           cfg.Logging.Dir,
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Service:       "marketlens-cli",
		RetentionDays: cfg.Logging.RetentionDays,
		Output:        stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()

	var recommender marketlens.Recommender
	if !opts.marketOnly {
		recommender, err = newRecommender(cfg, opts.direct, logger)
		if err != nil {
			return err
		}
	}

	core := marketlens.New(marketlens.Options{
		Logger:       logger,
		Recommender:  recommender,
		GammaBaseURL: cfg.Gamma.BaseURL,
		GammaRate:    cfg.Gamma.RateLimit,
		GammaBurst:   cfg.Gamma.Burst,
		FetchTimeout: cfg.Gamma.Timeout,
	})

	market := core.FetchMarket(ctx, opts.input)
	if err := renderMarket(stdout, market); err != nil {
		return err
	}
	if opts.marketOnly {
		return nil
	}

	fmt.Fprintf(stdout, "\nRunning %s analysis...\n", mode)
	recommendation, err := core.Analyze(ctx, marketlens.AnalysisRequest{Market: *market, Mode: mode})
	if err != nil {
		return err
	}
	return renderRecommendation(stdout, recommendation)
}

// newRecommender talks to the proxy unless direct is set, in which case the
// provider key must be available locally.
func newRecommender(cfg *config.Config, direct bool, logger *slog.Logger) (marketlens.Recommender, error) {
	if !direct {
		return marketlens.NewProxyClient(marketlens.ProxyClientOptions{
			Endpoint:  cfg.Client.Endpoint,
			AccessKey: cfg.Client.AccessKey,
			Timeout:   cfg.Provider.DeepTimeout + proxyTimeoutMargin,
		})
	}
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("direct mode needs a %s api key", cfg.Provider.Name)
	}
	provider, err := marketlens.NewProvider(marketlens.ProviderConfig{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return marketlens.NewAnalyzer(marketlens.AnalyzerOptions{
		Provider: provider,
		Models: marketlens.ModelSet{
			Quick: cfg.Provider.QuickModel,
			Deep:  cfg.Provider.DeepModel,
		},
		QuickTimeout: cfg.Provider.QuickTimeout,
		DeepTimeout:  cfg.Provider.DeepTimeout,
		Logger:       logger,
	})
}
