package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := &config.UpstreamConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    1,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  time.Millisecond,
	}
	f := NewFetcher(cfg, log)
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return NewChain(f, log)
}

// recordingUpstream tracks the order in which endpoints are hit.
type recordingUpstream struct {
	mu    sync.Mutex
	order []string
}

func (u *recordingUpstream) server(name string, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.order = append(u.order, name)
		u.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(body))
	}))
}

func parseValueField(body []byte) (float64, error) {
	var obj map[string]string
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0, err
	}
	v, ok := obj["value"]
	if !ok {
		return 0, fmt.Errorf("no value field")
	}
	return strconv.ParseFloat(v, 64)
}

func TestChainFallbackOrdering(t *testing.T) {
	rec := &recordingUpstream{}
	primary := rec.server("primary", http.StatusBadGateway, "")
	defer primary.Close()
	mirror := rec.server("mirror", http.StatusForbidden, "")
	defer mirror.Close()
	secondary := rec.server("secondary", http.StatusOK, `{"value":"42.5"}`)
	defer secondary.Close()

	endpoints := []Endpoint{
		{Name: "primary", Provider: "binance", URL: func(string) string { return primary.URL }, Parse: parseValueField},
		{Name: "mirror", Provider: "binance", URL: func(string) string { return mirror.URL }, Parse: parseValueField},
		{Name: "secondary", Provider: "coinglass", URL: func(string) string { return secondary.URL }, Parse: parseValueField},
	}

	chain := newTestChain(t)
	res, err := chain.Fetch(context.Background(), "BTCUSDT", endpoints)
	require.NoError(t, err)

	assert.Equal(t, 42.5, res.Value)
	assert.Equal(t, "coinglass", res.Provider)
	assert.Equal(t, "secondary", res.Endpoint)
	assert.Equal(t, []string{"primary", "mirror", "secondary"}, rec.order)
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	rec := &recordingUpstream{}
	primary := rec.server("primary", http.StatusOK, `{"value":"1"}`)
	defer primary.Close()
	mirror := rec.server("mirror", http.StatusOK, `{"value":"2"}`)
	defer mirror.Close()

	endpoints := []Endpoint{
		{Name: "primary", Provider: "binance", URL: func(string) string { return primary.URL }, Parse: parseValueField},
		{Name: "mirror", Provider: "binance", URL: func(string) string { return mirror.URL }, Parse: parseValueField},
	}

	chain := newTestChain(t)
	res, err := chain.Fetch(context.Background(), "BTCUSDT", endpoints)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Value)
	assert.Equal(t, []string{"primary"}, rec.order)
}

func TestChainAllUpstreamsFailed(t *testing.T) {
	rec := &recordingUpstream{}
	primary := rec.server("primary", http.StatusBadGateway, "")
	defer primary.Close()
	mirror := rec.server("mirror", http.StatusBadGateway, "")
	defer mirror.Close()

	endpoints := []Endpoint{
		{Name: "primary", Provider: "binance", URL: func(string) string { return primary.URL }, Parse: parseValueField},
		{Name: "mirror", Provider: "binance", URL: func(string) string { return mirror.URL }, Parse: parseValueField},
	}

	chain := newTestChain(t)
	_, err := chain.Fetch(context.Background(), "BTCUSDT", endpoints)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllUpstreamsFailed)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
	assert.Contains(t, exhausted.Failures[0], "primary")
	assert.Contains(t, exhausted.Failures[1], "mirror")
}

func TestChainParseFailureMovesToNextEndpoint(t *testing.T) {
	rec := &recordingUpstream{}
	// Fetch succeeds but the shape is unusable; the chain must not retry
	// this endpoint and must continue down the list.
	garbled := rec.server("garbled", http.StatusOK, `<html>blocked</html>`)
	defer garbled.Close()
	good := rec.server("good", http.StatusOK, `{"value":"7"}`)
	defer good.Close()

	endpoints := []Endpoint{
		{Name: "garbled", Provider: "binance", URL: func(string) string { return garbled.URL }, Parse: parseValueField},
		{Name: "good", Provider: "binance", URL: func(string) string { return good.URL }, Parse: parseValueField},
	}

	chain := newTestChain(t)
	res, err := chain.Fetch(context.Background(), "BTCUSDT", endpoints)
	require.NoError(t, err)

	assert.Equal(t, 7.0, res.Value)
	assert.Equal(t, []string{"garbled", "good"}, rec.order)
}

func TestChainNoEndpoints(t *testing.T) {
	chain := newTestChain(t)
	_, err := chain.Fetch(context.Background(), "BTCUSDT", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllUpstreamsFailed)
}
