// Package workflow ties capture, the local template store, the match policy
// and the remote directory into the identification and enrollment state
// machines a kiosk runs.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/grosvenor-hsc/biotime/pkg/biotypes"
	"github.com/grosvenor-hsc/biotime/pkg/capture"
	"github.com/grosvenor-hsc/biotime/pkg/directory"
	"github.com/grosvenor-hsc/biotime/pkg/options"
	"github.com/grosvenor-hsc/biotime/pkg/templatestore"
)

var (
	ErrEmptyName       = errors.New("workflow: name is empty")
	ErrNoMatchingUsers = errors.New("workflow: no matching users")
	ErrAmbiguousName   = errors.New("workflow: several directory entries match; enter the exact name")
	ErrNoMatch         = errors.New("workflow: fingerprint not recognised, try again")
	ErrNoTemplates     = errors.New("workflow: no templates enrolled")
	ErrAlreadyEnrolled = errors.New("workflow: name already has a template, use re-enrol")
)

// Directory is the remote surface the workflows need. *directory.Client
// satisfies it; tests substitute fakes.
type Directory interface {
	SearchEmployees(ctx context.Context, query string) ([]directory.Entry, error)
	Enrol(ctx context.Context, siteID, deviceID, employeeName, templateBase64 string) (*directory.EnrolResponse, error)
	ReEnrol(ctx context.Context, enrollmentID int, templateBase64 string) (*directory.EnrolResponse, error)
	DeleteEnrollment(ctx context.Context, enrollmentID int) error
	ReportScan(ctx context.Context, enrollmentID int, confidence float64, employeeName string) (*directory.ScanResponse, error)
	FetchTemplate(ctx context.Context, enrollmentID int) ([]byte, error)
}

var _ Directory = (*directory.Client)(nil)

// Store is the local template cache surface the workflows need.
type Store interface {
	Has(name string) bool
	Get(name string) (biotypes.Template, bool)
	Put(name string, template []byte) error
	Remove(name string) error
	BytesForTransmission(name string) ([]byte, error)
	SetBinding(name string, enrollmentID int) error
	Binding(name string) (int, bool)
	Names() []string
}

var _ Store = (*templatestore.Store)(nil)

// Capturer is the serialized sensor surface the workflows need.
type Capturer interface {
	CaptureProbe(ctx context.Context) (biotypes.Template, error)
	CaptureEnrollment(ctx context.Context, sampleCount int) (biotypes.Template, error)
	Compare(probe, enrolled biotypes.Template) (int, error)
}

var _ Capturer = (*capture.Orchestrator)(nil)

type Workflow struct {
	dir       Directory
	store     Store
	sensor    Capturer
	siteID    string
	deviceID  string
	threshold int
	logger    *slog.Logger
	progress  func(string)
}

func New(dir Directory, store Store, sensor Capturer, siteID, deviceID string, opts ...options.Option) *Workflow {
	oo := options.NewOptions(opts...)

	return &Workflow{
		dir:       dir,
		store:     store,
		sensor:    sensor,
		siteID:    siteID,
		deviceID:  deviceID,
		threshold: oo.Threshold,
		logger:    oo.Logger,
		progress:  oo.Progress,
	}
}

// SelectEntry applies the disambiguation rule to substring search results:
// a unique case-insensitive exact name match wins; a single result is taken
// as-is; anything else is ambiguous and refused rather than guessed at. It
// is the one rule for resolving an entered name, shared by the workflows
// and the management CLI.
func SelectEntry(entries []directory.Entry, enteredName string) (directory.Entry, error) {
	exact := lo.Filter(entries, func(e directory.Entry, _ int) bool {
		return strings.EqualFold(e.Name, enteredName)
	})
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(entries) == 1 {
		return entries[0], nil
	}
	return directory.Entry{}, ErrAmbiguousName
}
