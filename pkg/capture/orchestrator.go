// Package capture drives the fingerprint sensor: single probe captures and
// the multi-sample enrollment loop, serialized so only one sensor sequence
// is ever in flight.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/grosvenor-hsc/biotime/pkg/biotypes"
	"github.com/grosvenor-hsc/biotime/pkg/options"
)

// DefaultSampleCount is how many accepted samples an enrollment fuses.
const DefaultSampleCount = 4

type Orchestrator struct {
	mu       sync.Mutex
	sensor   Sensor
	wait     time.Duration
	logger   *slog.Logger
	progress func(string)
}

func NewOrchestrator(sensor Sensor, opts ...options.Option) *Orchestrator {
	oo := options.NewOptions(opts...)

	return &Orchestrator{
		sensor:   sensor,
		wait:     oo.CaptureWait,
		logger:   oo.Logger,
		progress: oo.Progress,
	}
}

// CaptureProbe acquires one sample and extracts a probe template from it.
// Failures come back as *CaptureError; the caller decides whether to retry.
func (o *Orchestrator) CaptureProbe(ctx context.Context) (biotypes.Template, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.captureLocked(ctx)
}

func (o *Orchestrator) captureLocked(ctx context.Context) (biotypes.Template, error) {
	if o.sensor == nil {
		return nil, ErrNotInitialized
	}

	o.progress("Place finger on the reader...")

	sample, err := o.sensor.Capture(ctx, o.wait)
	if err != nil {
		return nil, &CaptureError{Op: "capture", Err: err}
	}
	if len(sample) == 0 {
		return nil, &CaptureError{Op: "capture", Err: ErrEmptySample}
	}

	template, err := o.sensor.ExtractTemplate(sample)
	if err != nil {
		return nil, &CaptureError{Op: "extract", Err: err}
	}
	if len(template) == 0 {
		return nil, &CaptureError{Op: "extract", Err: ErrEmptySample}
	}

	return template, nil
}

// CaptureEnrollment collects sampleCount accepted samples and fuses them
// into an enrollment template. Failed captures are retried without limit;
// the loop ends only when enough samples are in or the context is canceled.
// A fusion failure is terminal for the attempt and is not retried.
func (o *Orchestrator) CaptureEnrollment(ctx context.Context, sampleCount int) (biotypes.Template, error) {
	if sampleCount <= 0 {
		sampleCount = DefaultSampleCount
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	samples := make([]biotypes.Template, 0, sampleCount)
	for len(samples) < sampleCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		o.progress(fmt.Sprintf("Scan %d of %d: place the same finger.", len(samples)+1, sampleCount))

		template, err := o.captureLocked(ctx)
		if err != nil {
			o.logger.Warn("enrollment sample failed, repeating", "sample", len(samples)+1, "error", err)
			o.progress("Capture failed, repeating this scan.")
			continue
		}

		samples = append(samples, template)
	}

	o.progress(fmt.Sprintf("Creating enrollment template from %d scans...", sampleCount))

	fused, err := o.sensor.FuseSamples(samples)
	if err != nil {
		return nil, &FusionError{Err: err}
	}
	if len(fused) == 0 {
		return nil, &FusionError{Err: ErrEmptySample}
	}

	return fused, nil
}

// CaptureEnrollmentAsync runs CaptureEnrollment on its own goroutine and
// delivers the outcome on the returned channel, so an interactive caller can
// keep its own loop responsive while the operator scans.
func (o *Orchestrator) CaptureEnrollmentAsync(ctx context.Context, sampleCount int) <-chan mo.Either[biotypes.Template, error] {
	ch := make(chan mo.Either[biotypes.Template, error], 1)

	go func() {
		defer close(ch)

		template, err := o.CaptureEnrollment(ctx, sampleCount)
		if err != nil {
			ch <- mo.Right[biotypes.Template, error](err)
			return
		}
		ch <- mo.Left[biotypes.Template, error](template)
	}()

	return ch
}

// Compare scores a probe against an enrolled template under the same
// serialization as captures.
func (o *Orchestrator) Compare(probe, enrolled biotypes.Template) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sensor == nil {
		return 0, ErrNotInitialized
	}
	return o.sensor.Compare(probe, enrolled)
}
