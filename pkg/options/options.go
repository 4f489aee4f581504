package options

import (
	"log/slog"
	"net/http"
	"time"
)

type Options struct {
	Logger         *slog.Logger
	Clock          func() time.Time
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	CaptureWait    time.Duration
	Threshold      int
	Progress       func(string)
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock replaces the wall clock used for request timestamps and audit
// fields. Tests pin it to get reproducible signatures.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.RequestTimeout = d
	}
}

// WithCaptureWait bounds how long a single sensor capture may block.
func WithCaptureWait(d time.Duration) Option {
	return func(opts *Options) {
		opts.CaptureWait = d
	}
}

// WithThreshold overrides the match threshold: raw comparison scores at or
// below it count as a match.
func WithThreshold(threshold int) Option {
	return func(opts *Options) {
		opts.Threshold = threshold
	}
}

// WithProgress installs a one-way sink for operator-facing progress lines
// ("Scan 2 of 4", ...). The sink is called from whatever goroutine runs the
// workflow; the observer decides how to render.
func WithProgress(sink func(string)) Option {
	return func(opts *Options) {
		opts.Progress = sink
	}
}

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultCaptureWait    = 5 * time.Second
	DefaultThreshold      = 100
)

func NewOptions(opts ...Option) *Options {
	oo := &Options{
		Logger:         slog.Default(),
		Clock:          time.Now,
		RequestTimeout: DefaultRequestTimeout,
		CaptureWait:    DefaultCaptureWait,
		Threshold:      DefaultThreshold,
		Progress:       func(string) {},
	}

	for _, opt := range opts {
		opt(oo)
	}

	return oo
}
