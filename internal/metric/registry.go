package metric

import (
	"fmt"
	"strings"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/upstream"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

// Registry maps each metric kind to its ordered fallback chain: primary
// production endpoint first, documented mirrors next, and a secondary data
// provider (CoinGlass, key-gated) last.
type Registry struct {
	chains map[models.MetricKind][]upstream.Endpoint
}

// NewRegistry builds the chain table from the upstream configuration.
func NewRegistry(cfg *config.UpstreamConfig) *Registry {
	// Binance futures data endpoints reject requests without a browser-ish
	// identity.
	browserHeaders := map[string]string{
		"User-Agent": cfg.UserAgent,
		"Referer":    cfg.Referer,
	}

	coingeckoHeaders := map[string]string{
		"User-Agent": cfg.UserAgent,
	}
	if cfg.CoinGeckoAPIKey != "" {
		coingeckoHeaders["x-cg-demo-api-key"] = cfg.CoinGeckoAPIKey
	}

	chains := map[models.MetricKind][]upstream.Endpoint{
		models.KindFundingRate: {
			{
				Name:     "binance-fapi",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/fapi/v1/fundingRate?symbol=%s&limit=1", cfg.BinanceFuturesURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeFundingRate,
			},
			{
				Name:     "binance-mirror",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/fapi/v1/fundingRate?symbol=%s&limit=1", cfg.BinanceMirrorURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeFundingRate,
			},
			{
				Name:     "binance-premium-index",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", cfg.BinanceFuturesURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeFundingRate,
			},
		},
		models.KindOpenInterest: {
			{
				Name:     "binance-fapi",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/futures/data/openInterestHist?symbol=%s&period=5m&limit=1", cfg.BinanceFuturesURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeOpenInterest,
			},
			{
				Name:     "binance-vision",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/futures/data/openInterestHist?symbol=%s&period=5m&limit=1", cfg.BinanceVisionURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeOpenInterest,
			},
			{
				Name:     "binance-oi",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/fapi/v1/openInterest?symbol=%s", cfg.BinanceFuturesURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeOpenInterest,
			},
		},
		models.KindLongShort: {
			{
				Name:     "binance-fapi",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=5m&limit=1", cfg.BinanceFuturesURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeLongShort,
			},
			{
				Name:     "binance-mirror",
				Provider: "binance",
				URL: func(symbol string) string {
					return fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=5m&limit=1", cfg.BinanceMirrorURL, symbol)
				},
				Headers: browserHeaders,
				Parse:   NormalizeLongShort,
			},
		},
		models.KindGlobalStats: {
			{
				Name:     "coingecko-global",
				Provider: "coingecko",
				URL: func(string) string {
					return fmt.Sprintf("%s/global", cfg.CoinGeckoURL)
				},
				Headers: coingeckoHeaders,
				Parse:   NormalizeGlobalMarketCap,
			},
		},
		models.KindFearGreed: {
			{
				Name:     "alternative-me",
				Provider: "alternative.me",
				URL: func(string) string {
					return fmt.Sprintf("%s/fng/?limit=1&format=json", cfg.AlternativeMeURL)
				},
				Headers: coingeckoHeaders,
				Parse:   NormalizeFearGreed,
			},
		},
		models.KindSpotPrices: {
			{
				Name:     "coingecko-simple",
				Provider: "coingecko",
				URL: func(string) string {
					return fmt.Sprintf("%s/simple/price?ids=bitcoin&vs_currencies=usd", cfg.CoinGeckoURL)
				},
				Headers: coingeckoHeaders,
				Parse:   NormalizeSimplePriceUSD("bitcoin"),
			},
		},
	}

	// The secondary provider rides last in each futures chain: a different
	// upstream's number is an acceptable approximation but least preferred.
	if cfg.CoinGlassAPIKey != "" {
		coinglassHeaders := map[string]string{
			"User-Agent":      cfg.UserAgent,
			"coinglassSecret": cfg.CoinGlassAPIKey,
		}
		chains[models.KindFundingRate] = append(chains[models.KindFundingRate], upstream.Endpoint{
			Name:     "coinglass",
			Provider: "coinglass",
			URL: func(symbol string) string {
				return fmt.Sprintf("%s/public/v2/funding?symbol=%s", cfg.CoinGlassURL, baseAsset(symbol))
			},
			Headers: coinglassHeaders,
			Parse:   NormalizeCoinGlass("fundingRate"),
		})
		chains[models.KindOpenInterest] = append(chains[models.KindOpenInterest], upstream.Endpoint{
			Name:     "coinglass",
			Provider: "coinglass",
			URL: func(symbol string) string {
				return fmt.Sprintf("%s/public/v2/open_interest?symbol=%s", cfg.CoinGlassURL, baseAsset(symbol))
			},
			Headers: coinglassHeaders,
			Parse:   NormalizeCoinGlass("openInterest"),
		})
	}

	return &Registry{chains: chains}
}

// Endpoints returns the ordered chain for a kind.
func (r *Registry) Endpoints(kind models.MetricKind) ([]upstream.Endpoint, bool) {
	eps, ok := r.chains[kind]
	return eps, ok
}

// baseAsset strips the quote currency off an exchange pair: BTCUSDT -> BTC.
func baseAsset(symbol string) string {
	for _, quote := range []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}
