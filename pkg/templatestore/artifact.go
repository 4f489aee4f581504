package templatestore

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

const (
	artifactVersion = 1
	// ArtifactExt is the file extension of one durable template artifact.
	ArtifactExt = ".fpt"
)

// artifact is the durable envelope around one enrolled template. The digest
// covers the template bytes only; a mismatch on load means the artifact was
// truncated or tampered with and the template must not reach the matcher.
type artifact struct {
	Version      int    `cbor:"1,keyasint"`
	Name         string `cbor:"2,keyasint"`
	Digest       []byte `cbor:"3,keyasint"`
	Template     []byte `cbor:"4,keyasint"`
	EnrollmentID *int64 `cbor:"5,keyasint,omitempty"`
}

func (s *Store) artifactPath(key string) string {
	return filepath.Join(s.dir, key+ArtifactExt)
}

// writeArtifact persists one entry. Written to a temp file first so a crash
// mid-write never leaves a half artifact under the real name.
func (s *Store) writeArtifact(key string, e *entry) error {
	art := artifact{
		Version:  artifactVersion,
		Name:     e.name,
		Digest:   templateDigest(e.template),
		Template: e.template,
	}
	if e.hasBinding {
		id := int64(e.enrollmentID)
		art.EnrollmentID = &id
	}

	encoded, err := cbor.Marshal(art)
	if err != nil {
		return fmt.Errorf("templatestore: encode artifact for %q: %w", e.name, err)
	}

	path := s.artifactPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("templatestore: write artifact for %q: %w", e.name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("templatestore: replace artifact for %q: %w", e.name, err)
	}

	return nil
}

func readArtifact(path string) (*entry, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var art artifact
	if err := cbor.Unmarshal(encoded, &art); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, filepath.Base(path), err)
	}
	if art.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrArtifactCorrupt, filepath.Base(path), art.Version)
	}
	if !bytes.Equal(art.Digest, templateDigest(art.Template)) {
		return nil, fmt.Errorf("%w: %s: digest mismatch", ErrArtifactCorrupt, filepath.Base(path))
	}

	e := &entry{
		name:     art.Name,
		template: art.Template,
	}
	if art.EnrollmentID != nil {
		e.enrollmentID = int(*art.EnrollmentID)
		e.hasBinding = true
	}
	return e, nil
}

func templateDigest(template []byte) []byte {
	sum := sha256.Sum256(template)
	return sum[:]
}
