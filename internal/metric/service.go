package metric

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/cache"
	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/upstream"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

// DefaultSymbol is used when a symbol-scoped metric is requested without
// one.
const DefaultSymbol = "BTCUSDT"

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

// Service is the metric proxy: it resolves a request to a fallback chain,
// fetches and normalizes the value, and serves it through the stale-serving
// cache. One instance owns all per-key cache state for the process.
type Service struct {
	registry *Registry
	chain    *upstream.Chain
	store    *cache.Store[models.Metric]
	cacheCfg *config.CacheConfig
	logger   *logrus.Entry

	now func() time.Time
}

// NewService wires the proxy from its parts.
func NewService(registry *Registry, chain *upstream.Chain, cacheCfg *config.CacheConfig, logger *logrus.Logger) *Service {
	return &Service{
		registry: registry,
		chain:    chain,
		store:    cache.NewStore[models.Metric](),
		cacheCfg: cacheCfg,
		logger:   logger.WithField("component", "metric"),
		now:      time.Now,
	}
}

// Get returns the freshest available metric for the request.
//
// The only error ever returned is ErrInvalidRequest; upstream trouble is
// folded into the payload instead (stale value with the refresh error
// attached, or OK=false when no success has ever been observed for the
// key).
func (s *Service) Get(ctx context.Context, req models.MetricRequest) (models.Metric, error) {
	req, err := s.normalizeRequest(req)
	if err != nil {
		return models.Metric{}, err
	}

	endpoints, ok := s.registry.Endpoints(req.Kind)
	if !ok {
		return models.Metric{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}

	key := req.Key()
	ttl := s.cacheCfg.TTLFor(string(req.Kind))

	value, stale, err := s.store.Get(ctx, key, ttl, func(ctx context.Context) (models.Metric, error) {
		return s.refresh(ctx, req, endpoints)
	})

	if err == nil {
		return value, nil
	}

	if stale {
		value.Stale = true
		value.Error = err.Error()
		s.logger.WithFields(logrus.Fields{
			"key": key,
		}).WithError(err).Warn("Refresh failed, serving stale value")
		return value, nil
	}

	// Cold start: no success has ever been recorded for this key.
	s.logger.WithField("key", key).WithError(err).Error("Metric unavailable with no cached fallback")
	return models.Metric{
		OK:          false,
		Value:       nil,
		TimestampMs: s.now().UnixMilli(),
		Stale:       false,
		Error:       err.Error(),
	}, nil
}

// TTL exposes the freshness window for a kind, for Cache-Control headers.
func (s *Service) TTL(kind models.MetricKind) time.Duration {
	return s.cacheCfg.TTLFor(string(kind))
}

func (s *Service) refresh(ctx context.Context, req models.MetricRequest, endpoints []upstream.Endpoint) (models.Metric, error) {
	prev, hadPrev := s.store.Peek(req.Key())

	res, err := s.chain.Fetch(ctx, req.Symbol, endpoints)
	if err != nil {
		return models.Metric{}, err
	}

	m := models.Metric{
		OK:          true,
		Value:       models.Float64Ptr(res.Value),
		TimestampMs: s.now().UnixMilli(),
		Source:      res.Provider,
		Stale:       false,
	}
	if hadPrev && prev.Value != nil && *prev.Value != res.Value {
		m.PreviousValue = prev.Value
	}
	return m, nil
}

func (s *Service) normalizeRequest(req models.MetricRequest) (models.MetricRequest, error) {
	if !req.Kind.NeedsSymbol() {
		req.Symbol = ""
		return req, nil
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		symbol = DefaultSymbol
	}
	if !symbolPattern.MatchString(symbol) {
		return models.MetricRequest{}, fmt.Errorf("%w: malformed symbol %q", ErrInvalidRequest, req.Symbol)
	}
	req.Symbol = symbol
	return req, nil
}
