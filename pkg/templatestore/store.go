// Package templatestore owns the durable mapping from display name to
// enrolled template and remote enrollment binding. It is the local source of
// truth for "can this client verify this person"; the remote directory stays
// the source of truth for who exists.
//
// Names are case-insensitive everywhere. All access goes through one
// store-wide mutex, so same-name put/remove/get from concurrent workflows
// cannot race.
package templatestore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/grosvenor-hsc/biotime/pkg/biotypes"
	"github.com/grosvenor-hsc/biotime/pkg/options"
)

var (
	ErrArtifactCorrupt = errors.New("templatestore: artifact corrupt")
	ErrUnknownName     = errors.New("templatestore: no template for name")
	ErrInvalidName     = errors.New("templatestore: invalid name")
)

type entry struct {
	name         string // display name as enrolled
	template     biotypes.Template
	enrollmentID int
	hasBinding   bool
}

type Store struct {
	mu      sync.Mutex
	dir     string
	logger  *slog.Logger
	entries map[string]*entry // keyed by lower-cased name
}

// New opens the store over dir, creating it if needed, and hydrates every
// readable artifact. A corrupt artifact is logged and skipped rather than
// taking the whole store down; the name simply reads as absent.
func New(dir string, opts ...options.Option) (*Store, error) {
	oo := options.NewOptions(opts...)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("templatestore: create %s: %w", dir, err)
	}

	s := &Store{
		dir:     dir,
		logger:  oo.Logger,
		entries: make(map[string]*entry),
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*"+ArtifactExt))
	if err != nil {
		return nil, fmt.Errorf("templatestore: scan %s: %w", dir, err)
	}
	for _, path := range paths {
		e, err := readArtifact(path)
		if err != nil {
			s.logger.Error("skipping unreadable template artifact", "path", path, "error", err)
			continue
		}
		s.entries[keyFor(e.name)] = e
	}

	return s, nil
}

func keyFor(name string) string {
	return strings.ToLower(name)
}

func validName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	// Names become artifact file names.
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

func (s *Store) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[keyFor(name)]
	return ok
}

func (s *Store) Get(name string) (biotypes.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[keyFor(name)]
	if !ok {
		return nil, false
	}
	return e.template.Clone(), true
}

// Put persists the template durably and hydrates the in-memory entry. An
// existing entry for the same name is replaced wholesale; its enrollment
// binding carries over until a newer enrol response overwrites it.
func (s *Store) Put(name string, template []byte) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(template) == 0 {
		return fmt.Errorf("templatestore: empty template for %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(name)
	e := &entry{
		name:     name,
		template: biotypes.Template(template).Clone(),
	}
	if prev, ok := s.entries[key]; ok && prev.hasBinding {
		e.enrollmentID = prev.enrollmentID
		e.hasBinding = true
	}

	if err := s.writeArtifact(key, e); err != nil {
		return err
	}
	s.entries[key] = e

	return nil
}

// Remove deletes the in-memory entry, the durable artifact and the
// enrollment binding as one unit. If the durable delete fails, the in-memory
// entry is restored so memory and disk never disagree.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(name)
	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}

	delete(s.entries, key)
	if err := os.Remove(s.artifactPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.entries[key] = e
		return fmt.Errorf("templatestore: remove artifact for %q: %w", name, err)
	}

	return nil
}

// BytesForTransmission returns the raw template bytes for sending to the
// directory service: memory first, falling back to re-reading the durable
// artifact so a template that was downloaded but not yet rehydrated can
// still be transmitted.
func (s *Store) BytesForTransmission(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(name)
	if e, ok := s.entries[key]; ok {
		return e.template.Clone(), nil
	}

	e, err := readArtifact(s.artifactPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
		}
		return nil, err
	}
	return e.template, nil
}

// SetBinding records the remote enrollment identity for a locally enrolled
// name. The binding persists inside the artifact, so it survives restarts.
func (s *Store) SetBinding(name string, enrollmentID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(name)
	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}

	updated := *e
	updated.enrollmentID = enrollmentID
	updated.hasBinding = true

	if err := s.writeArtifact(key, &updated); err != nil {
		return err
	}
	s.entries[key] = &updated

	return nil
}

func (s *Store) Binding(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[keyFor(name)]
	if !ok || !e.hasBinding {
		return 0, false
	}
	return e.enrollmentID, true
}

// Names lists enrolled display names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := lo.MapToSlice(s.entries, func(_ string, e *entry) string {
		return e.name
	})
	sort.Strings(names)
	return names
}
