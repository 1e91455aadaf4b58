package models

import "strings"

// MetricKind identifies one of the portal's dashboard metrics.
type MetricKind string

const (
	KindGlobalStats  MetricKind = "global"
	KindFundingRate  MetricKind = "funding"
	KindOpenInterest MetricKind = "open-interest"
	KindLongShort    MetricKind = "long-short"
	KindFearGreed    MetricKind = "fear-greed"
	KindSpotPrices   MetricKind = "prices"
)

// AllMetricKinds lists every supported kind, in display order.
var AllMetricKinds = []MetricKind{
	KindGlobalStats,
	KindFundingRate,
	KindOpenInterest,
	KindLongShort,
	KindFearGreed,
	KindSpotPrices,
}

// ParseMetricKind maps a query-string value to a MetricKind.
func ParseMetricKind(s string) (MetricKind, bool) {
	kind := MetricKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllMetricKinds {
		if kind == k {
			return k, true
		}
	}
	return "", false
}

// NeedsSymbol reports whether the kind is scoped to a futures trading pair.
func (k MetricKind) NeedsSymbol() bool {
	switch k {
	case KindFundingRate, KindOpenInterest, KindLongShort:
		return true
	}
	return false
}

// MetricRequest describes what a caller wants from the metric proxy.
type MetricRequest struct {
	Kind   MetricKind
	Symbol string
}

// Key returns the cache key for the request.
func (r MetricRequest) Key() string {
	if r.Symbol == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.Symbol
}

// Metric is the canonical payload returned by every metric endpoint.
//
// OK=false implies Value is null. Stale=true means the value was served
// from cache past its freshness window because a refresh failed.
type Metric struct {
	OK            bool     `json:"ok"`
	Value         *float64 `json:"value"`
	PreviousValue *float64 `json:"previousValue,omitempty"`
	TimestampMs   int64    `json:"ts"`
	Source        string   `json:"source"`
	Stale         bool     `json:"stale"`
	Error         string   `json:"error,omitempty"`
}

// Float64Ptr is a convenience for building optional numeric fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
