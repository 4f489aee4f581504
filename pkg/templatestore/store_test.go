package templatestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	return s, dir
}

func TestPutRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	template := []byte{0x01, 0x02, 0x03, 0x04}

	require.NoError(t, s.Put("Alice", template))

	got, err := s.BytesForTransmission("Alice")
	require.NoError(t, err)
	assert.Equal(t, template, got)

	hydrated, ok := s.Get("Alice")
	require.True(t, ok)
	assert.Equal(t, template, []byte(hydrated))
}

func TestCaseInsensitiveNames(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Put("Alice", []byte{0x01}))

	assert.True(t, s.Has("Alice"))
	assert.True(t, s.Has("ALICE"))
	assert.True(t, s.Has("alice"))

	_, ok := s.Get("aLiCe")
	assert.True(t, ok)
}

func TestPutReplacesWholesaleKeepsBinding(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Put("Bob", []byte{0x01}))
	require.NoError(t, s.SetBinding("Bob", 42))

	require.NoError(t, s.Put("bob", []byte{0x09}))

	got, _ := s.Get("Bob")
	assert.Equal(t, []byte{0x09}, []byte(got))

	id, ok := s.Binding("Bob")
	require.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestRemoveAtomicity(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, s.Put("Alice", []byte{0x01}))
	require.NoError(t, s.SetBinding("Alice", 7))

	require.NoError(t, s.Remove("ALICE"))

	assert.False(t, s.Has("Alice"))
	_, ok := s.Binding("Alice")
	assert.False(t, ok)

	matches, err := filepath.Glob(filepath.Join(dir, "*"+ArtifactExt))
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.ErrorIs(t, s.Remove("Alice"), ErrUnknownName)
}

func TestRemoveDurableFailureRollsBack(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, s.Put("Alice", []byte{0x01}))
	require.NoError(t, s.SetBinding("Alice", 7))

	// Swap the artifact for a non-empty directory so the durable delete
	// fails even when the tests run with full privileges.
	path := filepath.Join(dir, "alice"+ArtifactExt)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(path, "blocker"), []byte("x"), 0o600))

	err := s.Remove("Alice")
	require.Error(t, err)

	// The in-memory entry and binding come back with the failed delete,
	// so memory and disk never disagree.
	assert.True(t, s.Has("Alice"))
	id, ok := s.Binding("Alice")
	require.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestBindingNeverSilentlyCleared(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Put("Alice", []byte{0x01}))

	_, ok := s.Binding("Alice")
	assert.False(t, ok)

	require.NoError(t, s.SetBinding("Alice", 3))
	require.NoError(t, s.SetBinding("alice", 9))

	id, ok := s.Binding("Alice")
	require.True(t, ok)
	assert.Equal(t, 9, id)
}

func TestReloadFromDisk(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put("Alice", []byte{0x01, 0x02}))
	require.NoError(t, s1.SetBinding("Alice", 11))

	s2, err := New(dir)
	require.NoError(t, err)

	assert.True(t, s2.Has("alice"))
	got, err := s2.BytesForTransmission("Alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got)

	id, ok := s2.Binding("Alice")
	require.True(t, ok)
	assert.Equal(t, 11, id)
}

func TestCorruptArtifactSkippedOnLoad(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put("Alice", []byte{0x01, 0x02}))

	matches, err := filepath.Glob(filepath.Join(dir, "*"+ArtifactExt))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NoError(t, os.WriteFile(matches[0], []byte("not an artifact"), 0o600))

	s2, err := New(dir)
	require.NoError(t, err)
	assert.False(t, s2.Has("Alice"))

	_, err = s2.BytesForTransmission("Alice")
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestStaleDigestIsCorrupt(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put("Alice", []byte{0x01, 0x02}))

	// Rewrite the artifact with swapped template bytes but the original
	// digest. It still decodes cleanly, so only the digest check can
	// catch it.
	path := filepath.Join(dir, "alice"+ArtifactExt)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var art artifact
	require.NoError(t, cbor.Unmarshal(raw, &art))
	art.Template = []byte{0x09, 0x08}
	mutated, err := cbor.Marshal(art)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, mutated, 0o600))

	s2, err := New(dir)
	require.NoError(t, err)
	assert.False(t, s2.Has("Alice"))

	_, err = s2.BytesForTransmission("Alice")
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestBytesForTransmissionUnknown(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.BytesForTransmission("Nobody")
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestSetBindingUnknownName(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.SetBinding("Nobody", 1), ErrUnknownName)
}

func TestInvalidNames(t *testing.T) {
	s, _ := newStore(t)

	assert.ErrorIs(t, s.Put("", []byte{0x01}), ErrInvalidName)
	assert.ErrorIs(t, s.Put("   ", []byte{0x01}), ErrInvalidName)
	assert.ErrorIs(t, s.Put("a/b", []byte{0x01}), ErrInvalidName)
	assert.ErrorIs(t, s.Put("..", []byte{0x01}), ErrInvalidName)
}

func TestNamesSorted(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Put("Charlie", []byte{0x01}))
	require.NoError(t, s.Put("alice", []byte{0x02}))
	require.NoError(t, s.Put("Bob", []byte{0x03}))

	assert.Equal(t, []string{"Bob", "Charlie", "alice"}, s.Names())
}
