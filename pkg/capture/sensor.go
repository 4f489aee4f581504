package capture

import (
	"context"
	"time"

	"github.com/grosvenor-hsc/biotime/pkg/biotypes"
)

// Sensor is the opaque hardware capability behind capture, feature
// extraction, comparison and fusion. Implementations wrap a vendor SDK; this
// subsystem only applies policy on top of the scores and templates they
// produce.
//
// A Sensor is an exclusively-owned resource. Callers must not invoke it
// concurrently; the Orchestrator serializes all access.
type Sensor interface {
	// Capture blocks until a finger is presented or wait elapses.
	Capture(ctx context.Context, wait time.Duration) (biotypes.RawSample, error)
	// ExtractTemplate derives a matchable template from one raw sample.
	ExtractTemplate(sample biotypes.RawSample) (biotypes.Template, error)
	// Compare scores a probe against an enrolled template. The score is a
	// distance: non-negative, lower means more similar.
	Compare(probe, enrolled biotypes.Template) (int, error)
	// FuseSamples merges several accepted samples into one enrollment
	// template.
	FuseSamples(samples []biotypes.Template) (biotypes.Template, error)
}

// SensorError is a diagnostic failure reported by a sensor SDK, carrying the
// SDK's own result code for operator logs.
type SensorError struct {
	Code    string
	Message string
}

func (e *SensorError) Error() string {
	if e.Message != "" {
		return "sensor: " + e.Code + ": " + e.Message
	}
	return "sensor: " + e.Code
}
