package upstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks a single endpoint that failed after exhausting
	// its retry budget.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrAllUpstreamsFailed marks a fallback chain with no surviving
	// endpoint.
	ErrAllUpstreamsFailed = errors.New("all upstreams failed")
)

// UnavailableError carries the last failure observed for one endpoint.
type UnavailableError struct {
	URL      string
	Status   int // last HTTP status, 0 for transport-level failures
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream unavailable: %s after %d attempts (last status %d)",
			e.URL, e.Attempts, e.Status)
	}
	return fmt.Sprintf("upstream unavailable: %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Err }

// ExhaustedError aggregates the per-endpoint failure reasons of a chain.
type ExhaustedError struct {
	Failures []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all upstreams failed: %s", strings.Join(e.Failures, "; "))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllUpstreamsFailed }
