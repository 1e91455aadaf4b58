package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/metric"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

// MetricsHandler serves the metric proxy and the dashboard widgets.
type MetricsHandler struct {
	metrics   *metric.Service
	dashboard *metric.Dashboard
	swr       time.Duration
	logger    *logrus.Entry
}

// NewMetricsHandler creates the handler group.
func NewMetricsHandler(metrics *metric.Service, dashboard *metric.Dashboard, swr time.Duration, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		metrics:   metrics,
		dashboard: dashboard,
		swr:       swr,
		logger:    logger.WithField("component", "metrics-handler"),
	}
}

// RegisterRoutes configures the metric routes
func (h *MetricsHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/metric", h.handleMetric).Methods("GET")
	api.HandleFunc("/global", h.handleGlobal).Methods("GET")
	api.HandleFunc("/prices", h.handlePrices).Methods("GET")
	api.HandleFunc("/sentiment", h.handleSentiment).Methods("GET")
	api.HandleFunc("/summary", h.handleSummary).Methods("GET")
}

// handleMetric serves GET /api/v1/metric?kind=...&symbol=...
//
// Upstream failure is never a transport-level failure here: the widget
// always gets a 200 payload, with ok=false only when no value has ever
// been fetched for the key. Only malformed requests get a 400.
func (h *MetricsHandler) handleMetric(w http.ResponseWriter, r *http.Request) {
	kindParam := r.URL.Query().Get("kind")
	kind, ok := models.ParseMetricKind(kindParam)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", kindParam))
		return
	}

	req := models.MetricRequest{
		Kind:   kind,
		Symbol: r.URL.Query().Get("symbol"),
	}

	m, err := h.metrics.Get(r.Context(), req)
	if err != nil {
		if errors.Is(err, metric.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Metric lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setCacheControl(w, h.metrics.TTL(kind))
	writeJSON(w, http.StatusOK, m)
}

// handleGlobal serves the global market stats bar.
func (h *MetricsHandler) handleGlobal(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.GlobalStats(r.Context())
	h.setCacheControl(w, h.metrics.TTL(models.KindGlobalStats))
	writeJSON(w, http.StatusOK, stats)
}

// handlePrices serves the price board.
func (h *MetricsHandler) handlePrices(w http.ResponseWriter, r *http.Request) {
	board := h.dashboard.PriceBoard(r.Context())
	h.setCacheControl(w, h.metrics.TTL(models.KindSpotPrices))
	writeJSON(w, http.StatusOK, board)
}

// handleSentiment serves fear-greed plus altseason.
func (h *MetricsHandler) handleSentiment(w http.ResponseWriter, r *http.Request) {
	sentiment := h.dashboard.Sentiment(r.Context())
	h.setCacheControl(w, h.metrics.TTL(models.KindFearGreed))
	writeJSON(w, http.StatusOK, sentiment)
}

// handleSummary serves the BTC futures snapshot.
func (h *MetricsHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.dashboard.Summary(r.Context())
	h.setCacheControl(w, h.metrics.TTL(models.KindFundingRate))
	writeJSON(w, http.StatusOK, summary)
}

func (h *MetricsHandler) setCacheControl(w http.ResponseWriter, ttl time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		int(ttl.Seconds()), int(h.swr.Seconds())))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"ok":    false,
		"error": msg,
	})
}
