package metric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Per-kind extraction rules. Each normalizer accepts the raw body of a
// successful fetch and yields a finite number, or ErrUnparsableShape when
// no recognized field is present or coercion produces NaN/Inf.

// NormalizeFundingRate reads the latest funding rate. Recognizes the
// fundingRate history array and the premiumIndex object
// (lastFundingRate).
func NormalizeFundingRate(body []byte) (float64, error) {
	if obj, err := firstElement(body); err == nil {
		if v, ok := lookup(obj, "fundingRate"); ok {
			return toFinite(v)
		}
		return 0, fmt.Errorf("%w: funding-rate array element has no fundingRate field", ErrUnparsableShape)
	}

	obj, err := decodeObject(body)
	if err != nil {
		return 0, err
	}
	if v, ok := lookup(obj, "lastFundingRate", "fundingRate"); ok {
		return toFinite(v)
	}
	return 0, fmt.Errorf("%w: no funding-rate field in object body", ErrUnparsableShape)
}

// NormalizeOpenInterest reads an open-interest notional or contract count.
// Recognizes the openInterestHist array (sumOpenInterest, latest point)
// and the plain openInterest object.
func NormalizeOpenInterest(body []byte) (float64, error) {
	if rows, err := decodeArray(body); err == nil {
		if len(rows) == 0 {
			return 0, fmt.Errorf("%w: empty open-interest history", ErrUnparsableShape)
		}
		last := rows[len(rows)-1]
		if v, ok := lookup(last, "sumOpenInterest", "sumOpenInterestValue"); ok {
			return toFinite(v)
		}
		return 0, fmt.Errorf("%w: open-interest element has no sumOpenInterest field", ErrUnparsableShape)
	}

	obj, err := decodeObject(body)
	if err != nil {
		return 0, err
	}
	if v, ok := lookup(obj, "openInterest"); ok {
		return toFinite(v)
	}
	return 0, fmt.Errorf("%w: no open-interest field in object body", ErrUnparsableShape)
}

// NormalizeLongShort reads the global long/short account ratio. Prefers the
// upstream-provided longShortRatio; when absent computes
// longAccount / shortAccount, so >1 means more longs.
func NormalizeLongShort(body []byte) (float64, error) {
	obj, err := firstElement(body)
	if err != nil {
		obj, err = decodeObject(body)
		if err != nil {
			return 0, err
		}
	}

	if v, ok := lookup(obj, "longShortRatio"); ok {
		return toFinite(v)
	}

	longV, okLong := lookup(obj, "longAccount")
	shortV, okShort := lookup(obj, "shortAccount")
	if okLong && okShort {
		long, err := toFinite(longV)
		if err != nil {
			return 0, err
		}
		short, err := toFinite(shortV)
		if err != nil {
			return 0, err
		}
		ratio := long / short
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return 0, fmt.Errorf("%w: long/short ratio is not finite", ErrUnparsableShape)
		}
		return ratio, nil
	}

	return 0, fmt.Errorf("%w: no ratio or account fields in long-short body", ErrUnparsableShape)
}

// NormalizeFearGreed reads the alternative.me index value (0-100).
func NormalizeFearGreed(body []byte) (float64, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return 0, err
	}
	data, ok := obj["data"].([]interface{})
	if !ok || len(data) == 0 {
		return 0, fmt.Errorf("%w: fear-greed body has no data array", ErrUnparsableShape)
	}
	row, ok := data[0].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: fear-greed data element is not an object", ErrUnparsableShape)
	}
	if v, ok := lookup(row, "value"); ok {
		return toFinite(v)
	}
	return 0, fmt.Errorf("%w: fear-greed element has no value field", ErrUnparsableShape)
}

// NormalizeGlobalMarketCap reads total USD market cap from the CoinGecko
// /global payload.
func NormalizeGlobalMarketCap(body []byte) (float64, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return 0, err
	}
	data, ok := obj["data"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: global body has no data object", ErrUnparsableShape)
	}
	mcap, ok := data["total_market_cap"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: global body has no total_market_cap", ErrUnparsableShape)
	}
	if v, ok := lookup(mcap, "usd"); ok {
		return toFinite(v)
	}
	return 0, fmt.Errorf("%w: total_market_cap has no usd entry", ErrUnparsableShape)
}

// NormalizeSimplePriceUSD extracts one coin's USD price from a CoinGecko
// simple/price payload.
func NormalizeSimplePriceUSD(coinID string) func(body []byte) (float64, error) {
	return func(body []byte) (float64, error) {
		obj, err := decodeObject(body)
		if err != nil {
			return 0, err
		}
		row, ok := obj[coinID].(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("%w: simple/price body has no %s entry", ErrUnparsableShape, coinID)
		}
		if v, ok := lookup(row, "usd"); ok {
			return toFinite(v)
		}
		return 0, fmt.Errorf("%w: %s entry has no usd price", ErrUnparsableShape, coinID)
	}
}

// NormalizeCoinGlass extracts a named field from the first element of a
// CoinGlass {code, data:[...]} envelope.
func NormalizeCoinGlass(field string) func(body []byte) (float64, error) {
	return func(body []byte) (float64, error) {
		obj, err := decodeObject(body)
		if err != nil {
			return 0, err
		}
		data, ok := obj["data"].([]interface{})
		if !ok || len(data) == 0 {
			return 0, fmt.Errorf("%w: coinglass body has no data array", ErrUnparsableShape)
		}
		row, ok := data[0].(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("%w: coinglass data element is not an object", ErrUnparsableShape)
		}
		if v, ok := lookup(row, field); ok {
			return toFinite(v)
		}
		return 0, fmt.Errorf("%w: coinglass element has no %s field", ErrUnparsableShape, field)
	}
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableShape, snippet(body))
	}
	return obj, nil
}

func decodeArray(body []byte) ([]map[string]interface{}, error) {
	var raw []interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableShape, snippet(body))
	}
	rows := make([]map[string]interface{}, 0, len(raw))
	for _, el := range raw {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: array element is not an object", ErrUnparsableShape)
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

func firstElement(body []byte) (map[string]interface{}, error) {
	rows, err := decodeArray(body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty array body", ErrUnparsableShape)
	}
	return rows[0], nil
}

func lookup(obj map[string]interface{}, names ...string) (interface{}, bool) {
	for _, name := range names {
		if v, ok := obj[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// toFinite coerces a decoded JSON value to a finite float64. Upstreams
// deliver numbers both as JSON numbers and as quoted strings.
func toFinite(v interface{}) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrUnparsableShape, t)
		}
		f = parsed
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrUnparsableShape, t.String())
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported value type %T", ErrUnparsableShape, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: value is not finite", ErrUnparsableShape)
	}
	return f, nil
}

// snippet keeps diagnostic strings bounded when surfacing raw non-JSON
// upstream bodies.
func snippet(body []byte) string {
	const max = 120
	s := string(body)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return strconv.Quote(s)
}
