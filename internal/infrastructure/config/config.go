package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderYFinance   = "yfinance"
	ProviderYahoo      = "yahoo"
	ProviderTwelveData = "twelvedata"
	ProviderFinnhub    = "finnhub"
)

type Config struct {
	ServerHost string `yaml:"server_host"`
	ServerPort string `yaml:"server_port"`
	LogLevel   string `yaml:"log_level"`
	AppVersion string `yaml:"app_version"`

	MarketDataProvider string        `yaml:"market_data_provider"`
	YFinanceBaseURL    string        `yaml:"yfinance_base_url"`
	YahooBaseURL       string        `yaml:"yahoo_base_url"`
	TwelveDataAPIKey   string        `yaml:"twelve_data_api_key"`
	FinnhubAPIKey      string        `yaml:"finnhub_api_key"`
	UpstreamTimeout    time.Duration `yaml:"upstream_timeout"`

	FetchMaxAttempts int           `yaml:"fetch_max_attempts"`
	FetchBackoffBase time.Duration `yaml:"fetch_backoff_base"`

	FXDefaultCurrency  string `yaml:"fx_default_currency"`
	FXWindowDays       int    `yaml:"fx_window_days"`
	QuoteDefaultSymbol string `yaml:"quote_default_symbol"`
	QuoteWindowDays    int    `yaml:"quote_window_days"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ServerHost:         "localhost",
		ServerPort:         "8080",
		LogLevel:           "info",
		AppVersion:         "1.0.0",
		MarketDataProvider: ProviderYFinance,
		YFinanceBaseURL:    "http://localhost:8000",
		YahooBaseURL:       "https://query1.finance.yahoo.com",
		UpstreamTimeout:    10 * time.Second,
		FetchMaxAttempts:   3,
		FetchBackoffBase:   time.Second,
		FXDefaultCurrency:  "GHC",
		FXWindowDays:       10,
		QuoteDefaultSymbol: "NVDA",
		QuoteWindowDays:    30,
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, then environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServerHost = getEnvOrDefault("SERVER_HOST", c.ServerHost)
	c.ServerPort = getEnvOrDefault("SERVER_PORT", c.ServerPort)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.AppVersion = getEnvOrDefault("APP_VERSION", c.AppVersion)

	c.MarketDataProvider = strings.ToLower(getEnvOrDefault("MARKET_DATA_PROVIDER", c.MarketDataProvider))
	c.YFinanceBaseURL = getEnvOrDefault("YFINANCE_BASE_URL", c.YFinanceBaseURL)
	c.YahooBaseURL = getEnvOrDefault("YAHOO_BASE_URL", c.YahooBaseURL)
	c.TwelveDataAPIKey = getEnvOrDefault("TWELVE_DATA_API_KEY", c.TwelveDataAPIKey)
	c.FinnhubAPIKey = getEnvOrDefault("FINNHUB_API_KEY", c.FinnhubAPIKey)

	c.FXDefaultCurrency = strings.ToUpper(getEnvOrDefault("FX_DEFAULT_CURRENCY", c.FXDefaultCurrency))
	c.QuoteDefaultSymbol = getEnvOrDefault("QUOTE_DEFAULT_SYMBOL", c.QuoteDefaultSymbol)

	var err error
	if c.UpstreamTimeout, err = getEnvDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout); err != nil {
		return err
	}
	if c.FetchBackoffBase, err = getEnvDuration("FETCH_BACKOFF_BASE", c.FetchBackoffBase); err != nil {
		return err
	}
	if c.FetchMaxAttempts, err = getEnvInt("FETCH_MAX_ATTEMPTS", c.FetchMaxAttempts); err != nil {
		return err
	}
	if c.FXWindowDays, err = getEnvInt("FX_WINDOW_DAYS", c.FXWindowDays); err != nil {
		return err
	}
	if c.QuoteWindowDays, err = getEnvInt("QUOTE_WINDOW_DAYS", c.QuoteWindowDays); err != nil {
		return err
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	return nil
}

// Validate checks provider credentials and numeric bounds.
func (c *Config) Validate() error {
	switch c.MarketDataProvider {
	case ProviderYFinance, ProviderYahoo:
	case ProviderTwelveData:
		if c.TwelveDataAPIKey == "" {
			return fmt.Errorf("TWELVE_DATA_API_KEY environment variable is required for twelvedata provider")
		}
	case ProviderFinnhub:
		if c.FinnhubAPIKey == "" {
			return fmt.Errorf("FINNHUB_API_KEY environment variable is required for finnhub provider")
		}
	default:
		return fmt.Errorf("unsupported MARKET_DATA_PROVIDER: %s (supported: yfinance, yahoo, twelvedata, finnhub)", c.MarketDataProvider)
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1, got %d", c.FetchMaxAttempts)
	}
	if c.FetchBackoffBase <= 0 {
		return fmt.Errorf("FETCH_BACKOFF_BASE must be positive, got %s", c.FetchBackoffBase)
	}
	if c.FXWindowDays < 1 || c.QuoteWindowDays < 1 {
		return fmt.Errorf("FX_WINDOW_DAYS and QUOTE_WINDOW_DAYS must be at least 1")
	}
	if len(c.FXDefaultCurrency) != 3 {
		return fmt.Errorf("FX_DEFAULT_CURRENCY must be a three letter code, got %q", c.FXDefaultCurrency)
	}

	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
