package capture

import (
	"errors"
)

var (
	ErrEmptySample    = errors.New("capture: sensor returned no data")
	ErrNotInitialized = errors.New("capture: sensor not initialized")
)

// CaptureError wraps a failed capture or feature-extraction attempt. It is a
// recoverable outcome: the caller decides whether to retry.
type CaptureError struct {
	Op  string // "capture" or "extract"
	Err error
}

func (e *CaptureError) Error() string {
	return "capture: " + e.Op + " failed: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// FusionError reports a failed fusion of collected enrollment samples. The
// enrollment attempt as a whole fails; it must be restarted from zero
// samples.
type FusionError struct {
	Err error
}

func (e *FusionError) Error() string {
	return "capture: enrollment fusion failed: " + e.Err.Error()
}

func (e *FusionError) Unwrap() error {
	return e.Err
}
