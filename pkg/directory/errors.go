package directory

import (
	"errors"
	"fmt"
)

// ErrTimeout marks a request that exceeded its bounded wait. Distinct from a
// connection failure, which surfaces as the transport's own error.
var ErrTimeout = errors.New("directory: request timed out waiting for server")

// HTTPError is any non-2xx response: status, reason phrase, raw body. Never
// parsed further and never fatal; callers branch on it.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("directory: HTTP %s: %s", e.Status, e.Body)
}

// ProtocolError is a 2xx response whose body does not parse as the expected
// JSON shape.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "directory: " + e.Reason + ": " + e.Err.Error()
	}
	return "directory: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
