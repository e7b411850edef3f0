package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"marketlens/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFlagsAndApply(t *testing.T) {
	f, err := parseFlags([]string{"-host", "0.0.0.0", "-port", "9100", "-log-dir", "/var/log/marketlens"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Logging: config.LoggingConfig{Dir: ""},
	}
	applyFlags(cfg, f)
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9100 || cfg.Logging.Dir != "/var/log/marketlens" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	f, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := &config.Config{Server: config.ServerConfig{Host: "10.0.0.5", Port: 8123}}
	applyFlags(cfg, f)
	if cfg.Server.Host != "10.0.0.5" || cfg.Server.Port != 8123 {
		t.Fatalf("unset flags must not override config: %+v", cfg.Server)
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	var out bytes.Buffer
	if _, err := parseFlags([]string{"-data-dir", "x"}, &out); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	if !strings.Contains(out.String(), "data-dir") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}

func TestBuildRecommender(t *testing.T) {
	t.Run("no key disables analysis", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		cfg := &config.Config{Provider: config.ProviderConfig{Name: "gemini"}}
		rec, err := buildRecommender(cfg, logger)
		if err != nil {
			t.Fatalf("buildRecommender: %v", err)
		}
		if rec != nil {
			t.Fatalf("expected nil recommender without a key")
		}
		if !strings.Contains(buf.String(), "analysis disabled") {
			t.Fatalf("expected warning log, got %q", buf.String())
		}
	})

	for _, name := range []string{"gemini", "openai", "anthropic"} {
		name := name
		t.Run(name, func(t *testing.T) {
			cfg := &config.Config{Provider: config.ProviderConfig{
				Name:         name,
				APIKey:       "test-key",
				QuickTimeout: time.Minute,
				DeepTimeout:  3 * time.Minute,
			}}
			rec, err := buildRecommender(cfg, discardLogger())
			if err != nil {
				t.Fatalf("buildRecommender: %v", err)
			}
			if rec == nil {
				t.Fatalf("expected recommender for %s", name)
			}
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &config.Config{Provider: config.ProviderConfig{Name: "llama", APIKey: "k"}}
		if _, err := buildRecommender(cfg, discardLogger()); err == nil {
			t.Fatalf("expected error for unknown provider")
		}
	})
}

func TestNewServerTimeouts(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Provider: config.ProviderConfig{DeepTimeout: 3 * time.Minute},
	}
	server := newServer(cfg, http.NotFoundHandler())
	if server.Addr != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr %q", server.Addr)
	}
	if server.WriteTimeout <= cfg.Provider.DeepTimeout {
		t.Fatalf("write timeout %s must exceed the deep analysis timeout", server.WriteTimeout)
	}
	if server.ReadHeaderTimeout == 0 {
		t.Fatalf("expected read header timeout")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, server, discardLogger())
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
