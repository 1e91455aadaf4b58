package upstream

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/config"
)

// Fetcher performs one HTTP GET against an endpoint, with a per-attempt
// timeout and a bounded retry policy. Transport failures, timeouts and
// non-2xx statuses are retried with exponentially increasing, jittered
// delays; everything else is left to the caller.
type Fetcher struct {
	client      *http.Client
	logger      *logrus.Entry
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      time.Duration

	// sleep is replaceable in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher from the shared upstream policy.
func NewFetcher(cfg *config.UpstreamConfig, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      logger.WithField("component", "fetcher"),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
		jitter:      cfg.RetryJitter,
		sleep:       sleepContext,
	}
}

// GetJSON fetches url and returns the raw response body of the first
// successful attempt. After exhausting attempts it fails with an
// UnavailableError carrying the last status or transport error observed.
func (f *Fetcher) GetJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, status, err := f.doRequest(ctx, url, headers)
		if err == nil && status >= 200 && status < 300 {
			return body, nil
		}

		lastStatus = status
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", status)
		}

		f.logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
			"status":  status,
		}).WithError(lastErr).Debug("Upstream attempt failed")

		if attempt == f.maxAttempts {
			break
		}
		if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
			return nil, &UnavailableError{URL: url, Status: lastStatus, Attempts: attempt, Err: err}
		}
	}

	return nil, &UnavailableError{URL: url, Status: lastStatus, Attempts: f.maxAttempts, Err: lastErr}
}

func (f *Fetcher) doRequest(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// backoff returns the delay after the given failed attempt (1-based):
// nominally 300ms, 900ms, 1800ms with up to 200ms of additive jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 3
		if delay >= f.maxDelay {
			delay = f.maxDelay
			break
		}
	}
	if f.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(f.jitter)))
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
