package metric

import "errors"

var (
	// ErrUnparsableShape marks a response that was fetched successfully but
	// did not match any recognized schema. Never retried against the same
	// endpoint.
	ErrUnparsableShape = errors.New("unparsable upstream shape")

	// ErrInvalidRequest marks a caller error: unknown kind or malformed
	// symbol. Reported synchronously, never retried, never cached.
	ErrInvalidRequest = errors.New("invalid request")
)
