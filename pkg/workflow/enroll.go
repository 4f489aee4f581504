package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/grosvenor-hsc/biotime/pkg/capture"
)

// EnrolResult is the terminal success state of an enrollment run.
type EnrolResult struct {
	Name                  string
	EnrollmentID          int
	EnrollmentIDFormatted string
	EmployeeRef           string
	Status                string
}

func trimmed(name string) string {
	return strings.TrimSpace(name)
}

// Enrol registers a brand-new identity: the local capture-and-fuse phase
// must fully succeed before any remote call is made, then the template goes
// to the directory and the returned enrollment id becomes the binding.
func (w *Workflow) Enrol(ctx context.Context, enteredName string) (*EnrolResult, error) {
	name := trimmed(enteredName)
	if name == "" {
		return nil, ErrEmptyName
	}
	if w.store.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyEnrolled, name)
	}

	template, err := w.sensor.CaptureEnrollment(ctx, capture.DefaultSampleCount)
	if err != nil {
		return nil, err
	}

	resp, err := w.dir.Enrol(ctx, w.siteID, w.deviceID, name,
		base64.StdEncoding.EncodeToString(template))
	if err != nil {
		return nil, fmt.Errorf("remote enrol for %q failed: %w", name, err)
	}

	if err := w.store.Put(name, template); err != nil {
		return nil, fmt.Errorf("persisting template for %q failed: %w", name, err)
	}
	if err := w.store.SetBinding(name, resp.EnrollmentID); err != nil {
		return nil, fmt.Errorf("persisting binding for %q failed: %w", name, err)
	}

	w.logger.Info("enrolled", "name", name, "enrollmentId", resp.EnrollmentID)
	w.progress(fmt.Sprintf("Enrolment complete for %s.", name))

	return &EnrolResult{
		Name:                  name,
		EnrollmentID:          resp.EnrollmentID,
		EnrollmentIDFormatted: resp.EnrollmentIDFormatted,
		EmployeeRef:           resp.EmployeeRef,
		Status:                resp.Status,
	}, nil
}

// ReEnrol replaces the template of an existing remote identity. The identity
// comes from the stored binding when present, otherwise from a directory
// search disambiguated the same way identification does, adopted as the
// binding on success. Capture happens before any remote traffic.
func (w *Workflow) ReEnrol(ctx context.Context, enteredName string) (*EnrolResult, error) {
	name := trimmed(enteredName)
	if name == "" {
		return nil, ErrEmptyName
	}

	template, err := w.sensor.CaptureEnrollment(ctx, capture.DefaultSampleCount)
	if err != nil {
		return nil, err
	}

	enrollmentID, ok := w.store.Binding(name)
	if !ok {
		entries, err := w.dir.SearchEmployees(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("employee search failed: %w", err)
		}
		if len(entries) == 0 {
			return nil, ErrNoMatchingUsers
		}
		selected, err := SelectEntry(entries, name)
		if err != nil {
			return nil, err
		}
		enrollmentID = selected.ID
	}

	resp, err := w.dir.ReEnrol(ctx, enrollmentID, base64.StdEncoding.EncodeToString(template))
	if err != nil {
		return nil, fmt.Errorf("remote re-enrol for %q failed: %w", name, err)
	}

	if err := w.store.Put(name, template); err != nil {
		return nil, fmt.Errorf("persisting template for %q failed: %w", name, err)
	}
	if err := w.store.SetBinding(name, resp.EnrollmentID); err != nil {
		return nil, fmt.Errorf("persisting binding for %q failed: %w", name, err)
	}

	w.logger.Info("re-enrolled", "name", name, "enrollmentId", resp.EnrollmentID)
	w.progress(fmt.Sprintf("Re-enrolment complete for %s.", name))

	return &EnrolResult{
		Name:                  name,
		EnrollmentID:          resp.EnrollmentID,
		EnrollmentIDFormatted: resp.EnrollmentIDFormatted,
		EmployeeRef:           resp.EmployeeRef,
		Status:                resp.Status,
	}, nil
}

// PushTemplate re-uploads the locally cached template for a name to the
// directory against its stored binding, restoring the remote copy without a
// fresh capture. Works even when the template was downloaded but never
// rehydrated, by falling back to the durable artifact.
func (w *Workflow) PushTemplate(ctx context.Context, enteredName string) (*EnrolResult, error) {
	name := trimmed(enteredName)
	if name == "" {
		return nil, ErrEmptyName
	}

	template, err := w.store.BytesForTransmission(name)
	if err != nil {
		return nil, err
	}
	// The bytes may have come straight off the durable artifact. Rehydrate
	// the entry before any remote traffic so the binding write after the
	// push cannot fail on a name the store does not hold in memory.
	if !w.store.Has(name) {
		if err := w.store.Put(name, template); err != nil {
			return nil, fmt.Errorf("rehydrating template for %q failed: %w", name, err)
		}
	}
	enrollmentID, ok := w.store.Binding(name)
	if !ok {
		entries, err := w.dir.SearchEmployees(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("employee search failed: %w", err)
		}
		if len(entries) == 0 {
			return nil, ErrNoMatchingUsers
		}
		selected, err := SelectEntry(entries, name)
		if err != nil {
			return nil, err
		}
		enrollmentID = selected.ID
	}

	resp, err := w.dir.ReEnrol(ctx, enrollmentID, base64.StdEncoding.EncodeToString(template))
	if err != nil {
		return nil, fmt.Errorf("template push for %q failed: %w", name, err)
	}
	if err := w.store.SetBinding(name, resp.EnrollmentID); err != nil {
		return nil, fmt.Errorf("persisting binding for %q failed: %w", name, err)
	}

	w.logger.Info("template pushed", "name", name, "enrollmentId", resp.EnrollmentID)

	return &EnrolResult{
		Name:                  name,
		EnrollmentID:          resp.EnrollmentID,
		EnrollmentIDFormatted: resp.EnrollmentIDFormatted,
		EmployeeRef:           resp.EmployeeRef,
		Status:                resp.Status,
	}, nil
}

// Remove deletes an identity remotely and locally. The remote delete runs
// first: if it fails the local template stays, so the operator can retry
// without losing the ability to verify.
func (w *Workflow) Remove(ctx context.Context, enteredName string) error {
	name := trimmed(enteredName)
	if name == "" {
		return ErrEmptyName
	}

	if enrollmentID, ok := w.store.Binding(name); ok {
		if err := w.dir.DeleteEnrollment(ctx, enrollmentID); err != nil {
			return fmt.Errorf("remote delete for %q failed: %w", name, err)
		}
	}

	if err := w.store.Remove(name); err != nil {
		return err
	}

	w.logger.Info("removed", "name", name)
	return nil
}
