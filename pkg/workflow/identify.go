package workflow

import (
	"context"
	"fmt"

	"github.com/grosvenor-hsc/biotime/pkg/match"
)

// IdentifyResult is the terminal success state of one identification run.
type IdentifyResult struct {
	Name         string
	EnrollmentID int
	Score        int
	Confidence   float64
	Action       string // "IN" or "OUT", decided by the server
	Message      string
}

// Identify runs the full verification state machine for an entered name:
// directory lookup and disambiguation, local template hydration on a cache
// miss, probe capture and match, lazy binding adoption, and the scan report.
// Every failure is terminal for this run; the operator retries the whole
// workflow, nothing loops internally.
func (w *Workflow) Identify(ctx context.Context, enteredName string) (*IdentifyResult, error) {
	name := trimmed(enteredName)
	if name == "" {
		return nil, ErrEmptyName
	}

	// Lookup + disambiguation.
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
	w.logger.Debug("directory entry selected", "name", selected.Name, "id", selected.ID)

	// Ensure a local template. A miss hydrates from the directory; any
	// failure here ends the run.
	if !w.store.Has(selected.Name) {
		w.progress(fmt.Sprintf("Downloading template for %s...", selected.Name))
		template, err := w.dir.FetchTemplate(ctx, selected.ID)
		if err != nil {
			return nil, fmt.Errorf("template download for %q failed: %w", selected.Name, err)
		}
		if err := w.store.Put(selected.Name, template); err != nil {
			return nil, fmt.Errorf("caching template for %q failed: %w", selected.Name, err)
		}
	}

	// Capture and match.
	enrolled, ok := w.store.Get(selected.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTemplates, selected.Name)
	}
	probe, err := w.sensor.CaptureProbe(ctx)
	if err != nil {
		return nil, err
	}
	score, err := w.sensor.Compare(probe, enrolled)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	decision := match.Decide(score, w.threshold)
	w.logger.Debug("match decision", "name", selected.Name, "score", score,
		"isMatch", decision.IsMatch, "confidence", decision.Confidence)
	if !decision.IsMatch {
		return nil, fmt.Errorf("%w (score %d)", ErrNoMatch, score)
	}

	// Resolve the enrollment binding, adopting the search result lazily.
	// An existing binding is never overwritten here.
	enrollmentID, ok := w.store.Binding(selected.Name)
	if !ok {
		if err := w.store.SetBinding(selected.Name, selected.ID); err != nil {
			return nil, fmt.Errorf("adopting binding for %q failed: %w", selected.Name, err)
		}
		enrollmentID = selected.ID
	}

	// Report the event. The local match already succeeded, so a failure
	// here is a synchronization failure, not an identity failure.
	scan, err := w.dir.ReportScan(ctx, enrollmentID, decision.Confidence, selected.Name)
	if err != nil {
		return nil, fmt.Errorf("matched %q but reporting the scan failed: %w", selected.Name, err)
	}

	return &IdentifyResult{
		Name:         selected.Name,
		EnrollmentID: enrollmentID,
		Score:        score,
		Confidence:   decision.Confidence,
		Action:       scan.Action,
		Message: fmt.Sprintf("%s clocked %s (~%.0f%% confidence)",
			selected.Name, scan.Action, decision.Confidence*100),
	}, nil
}

// LocalIdentify sweeps every locally enrolled template against one probe and
// reports the best match. Management/diagnostic use only; it never contacts
// the directory.
func (w *Workflow) LocalIdentify(ctx context.Context) (*IdentifyResult, error) {
	names := w.store.Names()
	if len(names) == 0 {
		return nil, ErrNoTemplates
	}

	probe, err := w.sensor.CaptureProbe(ctx)
	if err != nil {
		return nil, err
	}

	bestName := ""
	bestScore := -1
	for _, name := range names {
		enrolled, ok := w.store.Get(name)
		if !ok {
			continue
		}
		score, err := w.sensor.Compare(probe, enrolled)
		if err != nil {
			w.logger.Warn("comparison failed during sweep", "name", name, "error", err)
			continue
		}
		w.progress(fmt.Sprintf("Compare score with %s: %d", name, score))
		if bestScore < 0 || score < bestScore {
			bestScore = score
			bestName = name
		}
	}

	if bestScore < 0 {
		return nil, fmt.Errorf("%w: every comparison failed", ErrNoMatch)
	}

	decision := match.Decide(bestScore, w.threshold)
	if !decision.IsMatch {
		return nil, fmt.Errorf("%w (best score %d)", ErrNoMatch, bestScore)
	}

	return &IdentifyResult{
		Name:       bestName,
		Score:      bestScore,
		Confidence: decision.Confidence,
		Message: fmt.Sprintf("Match: %s (score %d, ~%.0f%% confidence)",
			bestName, bestScore, decision.Confidence*100),
	}, nil
}
