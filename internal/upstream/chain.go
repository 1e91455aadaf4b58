package upstream

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Result is a successfully fetched and parsed metric value, tagged with the
// endpoint that answered.
type Result struct {
	Value    float64
	Provider string
	Endpoint string
}

// Chain tries an ordered list of endpoints until one yields a usable value.
// Transport failures have already been retried by the Fetcher; a parse
// failure skips straight to the next endpoint since retrying will not
// change a provider's shape.
type Chain struct {
	fetcher *Fetcher
	logger  *logrus.Entry
}

// NewChain creates a fallback-chain selector on top of a fetcher.
func NewChain(fetcher *Fetcher, logger *logrus.Logger) *Chain {
	return &Chain{
		fetcher: fetcher,
		logger:  logger.WithField("component", "chain"),
	}
}

// Fetch attempts the endpoints in declared order and returns the first
// parsed value. When every endpoint fails it returns an ExhaustedError
// carrying the per-endpoint reasons.
func (c *Chain) Fetch(ctx context.Context, symbol string, endpoints []Endpoint) (Result, error) {
	if len(endpoints) == 0 {
		return Result{}, &ExhaustedError{Failures: []string{"no endpoints configured"}}
	}

	failures := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		body, err := c.fetcher.GetJSON(ctx, ep.URL(symbol), ep.Headers)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ep.Name, err))
			continue
		}

		value, err := ep.Parse(body)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"endpoint": ep.Name,
				"symbol":   symbol,
			}).WithError(err).Warn("Upstream body did not match expected shape")
			failures = append(failures, fmt.Sprintf("%s: %v", ep.Name, err))
			continue
		}

		return Result{Value: value, Provider: ep.Provider, Endpoint: ep.Name}, nil
	}

	return Result{}, &ExhaustedError{Failures: failures}
}
