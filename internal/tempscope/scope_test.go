package tempscope

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_NewPathIsTrackedButNotCreated(t *testing.T) {
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	p0 := s.NewPath(".mbtiles")
	p1 := s.NewPath("")

	assert.Equal(t, filepath.Join(s.Dir(), "temp_0.mbtiles"), p0)
	assert.Equal(t, filepath.Join(s.Dir(), "temp_1"), p1)
	assert.Equal(t, []string{p0, p1}, s.Paths())
	assert.NoFileExists(t, p0)
	assert.True(t, strings.HasPrefix(filepath.Base(s.Dir()), DirPrefix))
}

func TestScope_CloseRemovesFilesAndDirectories(t *testing.T) {
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	file := s.NewPath(".mbtiles")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	dir := s.NewPath("")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "8", "1"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "8", "1", "2.png"), []byte("png"), 0o600))

	_ = s.NewPath(".never-created")

	require.NoError(t, s.Close())
	assert.NoFileExists(t, file)
	assert.NoDirExists(t, dir)
	assert.NoDirExists(t, s.Dir())
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	calls := 0
	s.remove = func(p string) error {
		calls++
		return os.RemoveAll(p)
	}

	require.NoError(t, os.WriteFile(s.NewPath(".tmp"), nil, 0o600))
	require.NoError(t, s.Close())
	first := calls
	require.NoError(t, s.Close())
	assert.Equal(t, first, calls, "second Close must not touch the filesystem")
}

func TestScope_CloseToleratesDeletionFailures(t *testing.T) {
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	failing := s.NewPath(".locked")
	ok := s.NewPath(".ok")
	require.NoError(t, os.WriteFile(failing, nil, 0o600))
	require.NoError(t, os.WriteFile(ok, nil, 0o600))

	var attempted []string
	s.remove = func(p string) error {
		attempted = append(attempted, p)
		if p == failing {
			return errors.New("simulated: file in use")
		}
		return os.RemoveAll(p)
	}

	require.NoError(t, s.Close(), "deletion failures are logged, never returned")
	assert.Contains(t, attempted, failing)
	assert.Contains(t, attempted, ok)
	// The directory sweep removes what the individual removal could not.
	for _, p := range s.Paths() {
		assert.NoFileExists(t, p)
	}
	assert.NoDirExists(t, s.Dir())
}

func TestScope_OpenFailsForMissingParent(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "parent"), zerolog.Nop())
	require.Error(t, err)
}

func TestScope_ConcurrentScopesAreIndependent(t *testing.T) {
	parent := t.TempDir()
	a, err := Open(parent, zerolog.Nop())
	require.NoError(t, err)
	b, err := Open(parent, zerolog.Nop())
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir(), b.Dir())
	require.NoError(t, os.WriteFile(b.NewPath(".x"), nil, 0o600))
	require.NoError(t, a.Close())
	assert.DirExists(t, b.Dir())
	require.NoError(t, b.Close())
}
