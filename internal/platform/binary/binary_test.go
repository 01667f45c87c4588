package binary

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("stub"), mode))
	return p
}

func TestNormalizeArch(t *testing.T) {
	cases := map[string]string{
		"x86_64":  "amd64",
		"AMD64":   "amd64",
		"amd64":   "amd64",
		"aarch64": "arm64",
		"arm64":   "arm64",
		"riscv64": "riscv64",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeArch(in), in)
	}
}

func TestResolve_LinuxBundledBinary(t *testing.T) {
	dir := t.TempDir()
	want := writeStub(t, dir, "pmtiles-linux-x64", 0o600)

	table := NewTable(dir)
	got, err := table.Resolve("linux", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(got)
		require.NoError(t, err)
		assert.Equal(t, fs.FileMode(0o755), fi.Mode().Perm())
	}
}

func TestResolve_WindowsSkipsChmod(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "pmtiles-windows-x64.exe", 0o600)

	table := NewTable(dir)
	table.chmod = func(string, fs.FileMode) error {
		t.Fatal("chmod must not be called for windows binaries")
		return nil
	}
	_, err := table.Resolve("windows", "amd64")
	require.NoError(t, err)
}

func TestResolve_UnsupportedPlatformListsAlternatives(t *testing.T) {
	table := NewTable(t.TempDir())

	_, err := table.Resolve("freebsd", "amd64")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, Platform{OS: "freebsd", Arch: "amd64"}, be.Platform)
	assert.Contains(t, err.Error(), "mbtiles")
	assert.Contains(t, err.Error(), "tiles")
}

func TestResolve_DarwinArm64Hint(t *testing.T) {
	table := NewTable(t.TempDir())

	_, err := table.Resolve("darwin", "aarch64")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Contains(t, err.Error(), "Rosetta")
}

func TestResolve_MissingBinaryNamesExpectedPath(t *testing.T) {
	dir := t.TempDir()
	table := NewTable(dir)

	_, err := table.Resolve("darwin", "amd64")
	require.ErrorIs(t, err, ErrBinaryMissing)
	assert.Contains(t, err.Error(), filepath.Join(dir, "pmtiles-darwin-x64"))
	assert.False(t, table.Available("darwin", "amd64"))
}

func TestResolve_DirectoryIsNotABinary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pmtiles-linux-x64"), 0o750))

	_, err := NewTable(dir).Resolve("linux", "amd64")
	require.ErrorIs(t, err, ErrBinaryMissing)
}

func TestResolve_OverrideBypassesTable(t *testing.T) {
	dir := t.TempDir()
	custom := writeStub(t, dir, "my-pmtiles", 0o755)

	table := NewTable(t.TempDir(), WithOverride(custom))
	got, err := table.Resolve("darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	missing := NewTable(dir, WithOverride(filepath.Join(dir, "nope")))
	_, err = missing.Resolve("linux", "amd64")
	require.ErrorIs(t, err, ErrBinaryMissing)
}

func TestResolve_ChmodFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "pmtiles-linux-x64", 0o600)

	table := NewTable(dir)
	table.chmod = func(string, fs.FileMode) error { return errors.New("read-only filesystem") }

	_, err := table.Resolve("linux", "amd64")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
}

func TestTable_CustomBinariesAndPlatforms(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "pmtiles-arm", 0o755)

	table := NewTable(dir, WithBinaries(map[Platform]string{
		{OS: "linux", Arch: "aarch64"}: "pmtiles-arm",
	}))
	assert.Equal(t, []Platform{{OS: "linux", Arch: "arm64"}}, table.Platforms())
	assert.True(t, table.Available("linux", "arm64"))
	assert.False(t, table.Available("linux", "amd64"))
}

func TestNewTable_DefaultDir(t *testing.T) {
	table := NewTable("")
	assert.Equal(t, "bin", filepath.Base(table.Dir()))
	assert.Len(t, table.Platforms(), 3)
}
