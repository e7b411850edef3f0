package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "MARKETLENS"
	envConfigPath = "MARKETLENS_CONFIG"
)

// providerKeyEnvs are consulted when provider.api_key is unset.
var providerKeyEnvs = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Config is the full runtime configuration shared by the server and the
// command-line client.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Gamma    GammaConfig    `mapstructure:"gamma"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// AccessKey guards the analyze routes. Empty disables the check.
	AccessKey string `mapstructure:"access_key"`
}

type ProviderConfig struct {
	Name         string        `mapstructure:"name"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	QuickModel   string        `mapstructure:"quick_model"`
	DeepModel    string        `mapstructure:"deep_model"`
	QuickTimeout time.Duration `mapstructure:"quick_timeout"`
	DeepTimeout  time.Duration `mapstructure:"deep_timeout"`
}

type GammaConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type ClientConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
}

// Load reads .env, defaults, an optional config file and MARKETLENS_*
// environment variables, in increasing priority. path may be empty, in which
// case MARKETLENS_CONFIG is used if set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path = strings.TrimSpace(path); path == "" {
		path = strings.TrimSpace(os.Getenv(envConfigPath))
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.access_key", "")

	v.SetDefault("provider.name", "gemini")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.quick_model", "")
	v.SetDefault("provider.deep_model", "")
	v.SetDefault("provider.quick_timeout", "60s")
	v.SetDefault("provider.deep_timeout", "180s")

	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "12s")
	v.SetDefault("gamma.rate_limit", 5)
	v.SetDefault("gamma.burst", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.retention_days", 7)

	v.SetDefault("client.endpoint", "http://127.0.0.1:8000")
	v.SetDefault("client.access_key", "")
}

func (c *Config) normalize() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		if env, ok := providerKeyEnvs[c.Provider.Name]; ok {
			c.Provider.APIKey = strings.TrimSpace(os.Getenv(env))
		}
	}

	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Server.CORSOrigins = origins
	c.Server.AccessKey = strings.TrimSpace(c.Server.AccessKey)
	c.Client.AccessKey = strings.TrimSpace(c.Client.AccessKey)
}

// Validate checks value ranges. A missing provider key is not an error here:
// the server can still serve market data without one.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if _, ok := providerKeyEnvs[c.Provider.Name]; !ok {
		return fmt.Errorf("provider.name must be one of: gemini, openai, anthropic")
	}
	if c.Provider.QuickTimeout <= 0 || c.Provider.DeepTimeout <= 0 {
		return fmt.Errorf("provider timeouts must be positive")
	}
	if c.Gamma.Timeout <= 0 {
		return fmt.Errorf("gamma.timeout must be positive")
	}
	if c.Gamma.RateLimit <= 0 {
		return fmt.Errorf("gamma.rate_limit must be greater than 0")
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
