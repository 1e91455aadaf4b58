package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricKind(t *testing.T) {
	for _, k := range AllMetricKinds {
		got, ok := ParseMetricKind(string(k))
		require.True(t, ok, "kind %q", k)
		assert.Equal(t, k, got)
	}

	// Query parameters arrive in whatever case the widget sends.
	got, ok := ParseMetricKind("  Funding ")
	require.True(t, ok)
	assert.Equal(t, KindFundingRate, got)

	_, ok = ParseMetricKind("dominance")
	assert.False(t, ok)
	_, ok = ParseMetricKind("")
	assert.False(t, ok)
}

func TestNeedsSymbol(t *testing.T) {
	assert.True(t, KindFundingRate.NeedsSymbol())
	assert.True(t, KindOpenInterest.NeedsSymbol())
	assert.True(t, KindLongShort.NeedsSymbol())

	assert.False(t, KindGlobalStats.NeedsSymbol())
	assert.False(t, KindFearGreed.NeedsSymbol())
	assert.False(t, KindSpotPrices.NeedsSymbol())
}

func TestRequestKey(t *testing.T) {
	assert.Equal(t, "funding:BTCUSDT", MetricRequest{Kind: KindFundingRate, Symbol: "BTCUSDT"}.Key())
	assert.Equal(t, "global", MetricRequest{Kind: KindGlobalStats}.Key())
}

func TestMetricJSONShape(t *testing.T) {
	m := Metric{
		OK:          true,
		Value:       Float64Ptr(-0.00015),
		TimestampMs: 1710000000000,
		Source:      "binance",
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, true, out["ok"])
	assert.InDelta(t, -0.00015, out["value"].(float64), 1e-12)
	assert.EqualValues(t, 1710000000000, out["ts"])
	assert.Equal(t, "binance", out["source"])

	// Optional fields stay out of the payload until set.
	assert.NotContains(t, out, "previousValue")
	assert.NotContains(t, out, "error")

	// A failed metric keeps value as an explicit null.
	raw, err = json.Marshal(Metric{OK: false, Error: "all upstreams failed"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":null`)
}
