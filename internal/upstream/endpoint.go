package upstream

// Endpoint describes one candidate source for a metric: where to fetch,
// which headers the provider expects, and how to read a number out of its
// response shape.
type Endpoint struct {
	// Name is a diagnostic label, unique within a chain ("binance-fapi",
	// "binance-mirror", "coinglass").
	Name string

	// Provider is reported to callers as the source of the value.
	Provider string

	// URL renders the request URL for a trading pair. Endpoints without a
	// symbol dimension ignore the argument.
	URL func(symbol string) string

	// Headers are sent verbatim with the request.
	Headers map[string]string

	// Parse extracts the metric value from a raw response body. A parse
	// failure is a shape defect, not a transport failure; the chain moves
	// on to the next endpoint without retrying this one.
	Parse func(body []byte) (float64, error)
}
