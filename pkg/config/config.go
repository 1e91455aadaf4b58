package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `env:", prefix=SERVER_"`
	Logging   LoggingConfig   `env:", prefix=LOG_"`
	Security  SecurityConfig  `env:", prefix=SECURITY_"`
	Upstream  UpstreamConfig  `env:", prefix=UPSTREAM_"`
	Cache     CacheConfig     `env:", prefix=CACHE_"`
	Subscribe SubscribeConfig `env:", prefix=SUBSCRIBE_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// SecurityConfig holds CORS configuration
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// UpstreamConfig holds the third-party API endpoints and the fetch policy
// shared by every metric proxy.
type UpstreamConfig struct {
	BinanceFuturesURL   string `env:"BINANCE_FUTURES_URL, default=https://fapi.binance.com"`
	BinanceMirrorURL    string `env:"BINANCE_MIRROR_URL, default=https://api.binance.com"`
	BinanceVisionURL    string `env:"BINANCE_VISION_URL, default=https://data-api.binance.vision"`
	CoinGeckoURL        string `env:"COINGECKO_URL, default=https://api.coingecko.com/api/v3"`
	CoinGeckoAPIKey     string `env:"COINGECKO_API_KEY"`
	CoinGlassURL        string `env:"COINGLASS_URL, default=https://open-api.coinglass.com"`
	CoinGlassAPIKey     string `env:"COINGLASS_API_KEY"`
	AlternativeMeURL    string `env:"ALTERNATIVE_ME_URL, default=https://api.alternative.me"`
	BlockchainCenterURL string `env:"BLOCKCHAINCENTER_URL, default=https://www.blockchaincenter.net"`

	UserAgent string `env:"USER_AGENT, default=CryptoMainly/1.0"`
	Referer   string `env:"REFERER, default=https://www.cryptomainly.co.uk/"`

	Timeout        time.Duration `env:"TIMEOUT, default=10s"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS, default=3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY, default=300ms"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY, default=1800ms"`
	RetryJitter    time.Duration `env:"RETRY_JITTER, default=200ms"`
}

// CacheConfig holds per-metric freshness windows. StaleWhileRevalidate only
// shapes the Cache-Control header; in-process staleness is governed by TTL.
type CacheConfig struct {
	FundingTTL           time.Duration `env:"FUNDING_TTL, default=60s"`
	OpenInterestTTL      time.Duration `env:"OPEN_INTEREST_TTL, default=60s"`
	LongShortTTL         time.Duration `env:"LONG_SHORT_TTL, default=60s"`
	GlobalTTL            time.Duration `env:"GLOBAL_TTL, default=90s"`
	FearGreedTTL         time.Duration `env:"FEAR_GREED_TTL, default=90s"`
	PricesTTL            time.Duration `env:"PRICES_TTL, default=45s"`
	SentimentTTL         time.Duration `env:"SENTIMENT_TTL, default=300s"`
	StaleWhileRevalidate time.Duration `env:"STALE_WHILE_REVALIDATE, default=60s"`
}

// SubscribeConfig holds the lead-capture relay configuration
type SubscribeConfig struct {
	RelayURL     string        `env:"RELAY_URL"`
	RelayTimeout time.Duration `env:"RELAY_TIMEOUT, default=10s"`
	DevLogPath   string        `env:"DEV_LOG_PATH"`
	DefaultTag   string        `env:"DEFAULT_TAG, default=CryptoMainly Portal"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("upstream max attempts must be at least 1, got %d", c.Upstream.MaxAttempts)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.Upstream.Timeout)
	}

	if c.Upstream.RetryBaseDelay > c.Upstream.RetryMaxDelay {
		return fmt.Errorf("retry base delay %s exceeds max delay %s",
			c.Upstream.RetryBaseDelay, c.Upstream.RetryMaxDelay)
	}

	return nil
}

// TTLFor returns the freshness window for a metric cache key prefix.
func (c *CacheConfig) TTLFor(kind string) time.Duration {
	switch kind {
	case "funding":
		return c.FundingTTL
	case "open-interest":
		return c.OpenInterestTTL
	case "long-short":
		return c.LongShortTTL
	case "global":
		return c.GlobalTTL
	case "fear-greed":
		return c.FearGreedTTL
	case "prices":
		return c.PricesTTL
	default:
		return c.GlobalTTL
	}
}

// GetServerAddr returns server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
