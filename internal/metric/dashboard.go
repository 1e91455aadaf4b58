package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/cache"
	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/upstream"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

// priceBoardCoins is the portal's fixed price-board list.
var priceBoardCoins = []struct {
	ID     string
	Symbol string
	Name   string
}{
	{"bitcoin", "BTC", "Bitcoin"},
	{"ethereum", "ETH", "Ethereum"},
	{"ripple", "XRP", "XRP"},
	{"binancecoin", "BNB", "BNB"},
	{"solana", "SOL", "Solana"},
	{"dogecoin", "DOGE", "Dogecoin"},
	{"tron", "TRX", "TRON"},
	{"cardano", "ADA", "Cardano"},
	{"chainlink", "LINK", "Chainlink"},
	{"litecoin", "LTC", "Litecoin"},
}

// Dashboard serves the portal's richer widgets (global stats bar, price
// board, sentiment, futures summary) on the same fetch/cache machinery as
// the scalar metric proxy.
type Dashboard struct {
	fetcher  *upstream.Fetcher
	metrics  *Service
	cfg      *config.UpstreamConfig
	cacheCfg *config.CacheConfig
	logger   *logrus.Entry

	globalStore    *cache.Store[models.GlobalStats]
	pricesStore    *cache.Store[models.PriceBoard]
	sentimentStore *cache.Store[models.Sentiment]

	now func() time.Time
}

// NewDashboard wires the dashboard services.
func NewDashboard(fetcher *upstream.Fetcher, metrics *Service, cfg *config.UpstreamConfig, cacheCfg *config.CacheConfig, logger *logrus.Logger) *Dashboard {
	return &Dashboard{
		fetcher:        fetcher,
		metrics:        metrics,
		cfg:            cfg,
		cacheCfg:       cacheCfg,
		logger:         logger.WithField("component", "dashboard"),
		globalStore:    cache.NewStore[models.GlobalStats](),
		pricesStore:    cache.NewStore[models.PriceBoard](),
		sentimentStore: cache.NewStore[models.Sentiment](),
		now:            time.Now,
	}
}

type coingeckoGlobal struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		TotalMarketCap      map[string]float64 `json:"total_market_cap"`
		TotalVolume         map[string]float64 `json:"total_volume"`
	} `json:"data"`
}

// GlobalStats returns the global market bar payload, stale-served on
// upstream failure.
func (d *Dashboard) GlobalStats(ctx context.Context) models.GlobalStats {
	value, stale, err := d.globalStore.Get(ctx, "global-stats", d.cacheCfg.GlobalTTL, d.loadGlobalStats)
	if err == nil {
		return value
	}
	if stale {
		value.Stale = true
		value.Error = err.Error()
		return value
	}
	return models.GlobalStats{OK: false, TS: d.now().UnixMilli(), Error: err.Error()}
}

func (d *Dashboard) loadGlobalStats(ctx context.Context) (models.GlobalStats, error) {
	var payload coingeckoGlobal
	url := fmt.Sprintf("%s/global", d.cfg.CoinGeckoURL)
	if err := d.getJSON(ctx, url, d.coingeckoHeaders(), &payload); err != nil {
		return models.GlobalStats{}, err
	}

	stats := models.GlobalStats{OK: true, TS: d.now().UnixMilli()}
	if v, ok := payload.Data.MarketCapPercentage["btc"]; ok {
		stats.BTCDom = models.Float64Ptr(v)
	}
	if v, ok := payload.Data.MarketCapPercentage["eth"]; ok {
		stats.ETHDom = models.Float64Ptr(v)
	}
	if v, ok := payload.Data.TotalMarketCap["usd"]; ok {
		stats.Mcap = models.Float64Ptr(v)
	}
	if v, ok := payload.Data.TotalVolume["usd"]; ok {
		stats.Vol24h = models.Float64Ptr(v)
	}
	return stats, nil
}

// PriceBoard returns the fixed coin list with USD prices and 24h change.
func (d *Dashboard) PriceBoard(ctx context.Context) models.PriceBoard {
	value, stale, err := d.pricesStore.Get(ctx, "price-board", d.cacheCfg.PricesTTL, d.loadPriceBoard)
	if err == nil {
		return value
	}
	if stale {
		value.Stale = true
		value.Error = err.Error()
		return value
	}
	return models.PriceBoard{OK: false, Rows: []models.PriceRow{}, TS: d.now().UnixMilli(), Error: err.Error()}
}

func (d *Dashboard) loadPriceBoard(ctx context.Context) (models.PriceBoard, error) {
	ids := make([]byte, 0, 128)
	for i, coin := range priceBoardCoins {
		if i > 0 {
			ids = append(ids, ',')
		}
		ids = append(ids, coin.ID...)
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		d.cfg.CoinGeckoURL, string(ids))

	var payload map[string]map[string]float64
	if err := d.getJSON(ctx, url, d.coingeckoHeaders(), &payload); err != nil {
		return models.PriceBoard{}, err
	}

	now := d.now().UnixMilli()
	rows := make([]models.PriceRow, 0, len(priceBoardCoins))
	for _, coin := range priceBoardCoins {
		row := models.PriceRow{ID: coin.ID, Symbol: coin.Symbol, Name: coin.Name, TS: now}
		if entry, ok := payload[coin.ID]; ok {
			if v, ok := entry["usd"]; ok {
				row.Price = models.Float64Ptr(v)
			}
			if v, ok := entry["usd_24h_change"]; ok {
				row.Change24h = models.Float64Ptr(v)
			}
		}
		rows = append(rows, row)
	}

	return models.PriceBoard{OK: true, Rows: rows, TS: now}, nil
}

type fngResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

type altseasonResponse struct {
	Altseason float64 `json:"altseason"`
}

// Sentiment returns the fear-greed and altseason readings. Each leg
// degrades to null independently; the whole payload is cached as one unit.
func (d *Dashboard) Sentiment(ctx context.Context) models.Sentiment {
	value, stale, err := d.sentimentStore.Get(ctx, "sentiment", d.cacheCfg.SentimentTTL, d.loadSentiment)
	if err == nil {
		return value
	}
	if stale {
		value.Error = err.Error()
		return value
	}
	return models.Sentiment{RevalidatedAt: d.now().UnixMilli(), Error: err.Error()}
}

func (d *Dashboard) loadSentiment(ctx context.Context) (models.Sentiment, error) {
	out := models.Sentiment{RevalidatedAt: d.now().UnixMilli()}

	fng, err := d.fetchFearGreed(ctx)
	if err != nil {
		// Fear & Greed is the anchor reading; without it the whole load
		// counts as failed so a cached payload can be stale-served.
		return models.Sentiment{}, err
	}
	out.FearGreed = fng

	// Altseason is a community endpoint; unavailable is normal.
	var alt altseasonResponse
	url := fmt.Sprintf("%s/api/altseason/", d.cfg.BlockchainCenterURL)
	if err := d.getJSON(ctx, url, d.coingeckoHeaders(), &alt); err != nil {
		d.logger.WithError(err).Debug("Altseason source unavailable")
	} else {
		out.Altseason = &models.AltseasonReading{Value: int(alt.Altseason + 0.5)}
	}

	return out, nil
}

func (d *Dashboard) fetchFearGreed(ctx context.Context) (*models.FearGreedReading, error) {
	var payload fngResponse
	url := fmt.Sprintf("%s/fng/?limit=1&format=json", d.cfg.AlternativeMeURL)
	if err := d.getJSON(ctx, url, d.coingeckoHeaders(), &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("%w: fear-greed body has no data array", ErrUnparsableShape)
	}

	row := payload.Data[0]
	value, err := strconv.Atoi(row.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: fear-greed value %q is not numeric", ErrUnparsableShape, row.Value)
	}
	updated, _ := strconv.ParseInt(row.Timestamp, 10, 64)

	return &models.FearGreedReading{
		Value:     value,
		Label:     row.ValueClassification,
		UpdatedAt: updated * 1000,
	}, nil
}

// Summary fans out over the BTC futures metrics and the Fear & Greed index.
// Every leg is best-effort: a failed leg yields null, never a failed
// response.
func (d *Dashboard) Summary(ctx context.Context) models.FuturesSummary {
	out := models.FuturesSummary{TS: d.now().UnixMilli()}

	g, ctx := errgroup.WithContext(ctx)

	leg := func(kind models.MetricKind, dst **float64) func() error {
		return func() error {
			m, err := d.metrics.Get(ctx, models.MetricRequest{Kind: kind, Symbol: DefaultSymbol})
			if err == nil && m.OK {
				*dst = m.Value
			}
			return nil
		}
	}

	g.Go(leg(models.KindOpenInterest, &out.OpenInterest))
	g.Go(leg(models.KindFundingRate, &out.FundingRate))
	g.Go(leg(models.KindLongShort, &out.LongShortRatio))
	g.Go(func() error {
		if fng, err := d.fetchFearGreed(ctx); err == nil {
			out.FearGreed = fng
		}
		return nil
	})

	// Legs never return errors; Wait only joins the fan-out.
	_ = g.Wait()

	return out
}

func (d *Dashboard) coingeckoHeaders() map[string]string {
	headers := map[string]string{"User-Agent": d.cfg.UserAgent}
	if d.cfg.CoinGeckoAPIKey != "" {
		headers["x-cg-demo-api-key"] = d.cfg.CoinGeckoAPIKey
	}
	return headers
}

func (d *Dashboard) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	body, err := d.fetcher.GetJSON(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsableShape, err)
	}
	return nil
}
