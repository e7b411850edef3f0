package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"marketlens/internal/api"
	"marketlens/internal/config"
	"marketlens/internal/logging"
	"marketlens/pkg/marketlens"
)

const shutdownTimeout = 10 * time.Second

// writeTimeoutMargin is added on top of the DEEP analysis timeout so a slow
// analysis is reported by the core rather than cut off by the server.
const writeTimeoutMargin = 30 * time.Second

type flags struct {
	configPath string
	host       string
	port       int
	logDir     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("marketlens-server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.configPath, "config", "", "Path to a config file (yaml, toml or json)")
	fs.StringVar(&f.host, "host", "", "Host to bind the server to")
	fs.IntVar(&f.port, "port", 0, "Port to run the server on")
	fs.StringVar(&f.logDir, "log-dir", "", "Directory for rotating log files")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// applyFlags lets explicitly set flags win over loaded configuration.
func applyFlags(cfg *config.Config, f flags) {
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.logDir != "" {
		cfg.Logging.Dir = f.logDir
	}
}

func run(ctx context.Context, args []string, output io.Writer) error {
	f, err := parseFlags(args, output)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f)

	logger, closer, err := logging.New(logging.Options{
		Dir:           cfg.Logging.Dir,
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	recommender, err := buildRecommender(cfg, logger)
	if err != nil {
		return err
	}
	core := marketlens.New(marketlens.Options{
		Logger:       logger,
		Recommender:  recommender,
		GammaBaseURL: cfg.Gamma.BaseURL,
		GammaRate:    cfg.Gamma.RateLimit,
		GammaBurst:   cfg.Gamma.Burst,
		FetchTimeout: cfg.Gamma.Timeout,
	})

	server := newServer(cfg, api.NewRouter(api.Options{
		Core:         core,
		Logger:       logger,
		AccessKey:    cfg.Server.AccessKey,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ProviderName: cfg.Provider.Name,
	}))
	return serve(ctx, server, logger)
}

// buildRecommender returns nil without error when no provider key is
// configured; the server then serves market data only.
func buildRecommender(cfg *config.Config, logger *slog.Logger) (marketlens.Recommender, error) {
	if cfg.Provider.APIKey == "" {
		logger.Warn("no provider api key configured; analysis disabled", "provider", cfg.Provider.Name)
		return nil, nil
	}
	provider, err := marketlens.NewProvider(marketlens.ProviderConfig{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}
	analyzer, err := marketlens.NewAnalyzer(marketlens.AnalyzerOptions{
		Provider: provider,
		Models: marketlens.ModelSet{
			Quick: cfg.Provider.QuickModel,
			Deep:  cfg.Provider.DeepModel,
		},
		QuickTimeout: cfg.Provider.QuickTimeout,
		DeepTimeout:  cfg.Provider.DeepTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}
	logger.Info("analysis enabled", "provider", provider.Name())
	return analyzer, nil
}

func newServer(cfg *config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           middleware.Compress(5, "application/json")(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Provider.DeepTimeout + writeTimeoutMargin,
		IdleTimeout:       60 * time.Second,
	}
}

// serve runs server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
