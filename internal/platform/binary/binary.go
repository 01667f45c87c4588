// Package binary selects the bundled PMTiles converter for the running platform.
package binary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedPlatform means no converter is bundled for the OS/architecture.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrBinaryMissing means the table names a converter but the file is absent.
	ErrBinaryMissing = errors.New("converter binary missing")
)

// Platform identifies an OS and a normalized CPU architecture.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string { return p.OS + "/" + p.Arch }

// Current returns the platform of the running process.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: NormalizeArch(runtime.GOARCH)}
}

// NormalizeArch maps architecture aliases onto Go's names.
func NormalizeArch(arch string) string {
	switch a := strings.ToLower(strings.TrimSpace(arch)); a {
	case "x86_64", "amd64", "x64":
		return "amd64"
	case "aarch64", "arm64":
		return "arm64"
	default:
		return a
	}
}

// DefaultBinaries is the converter table shipped with rgbweaver.
var DefaultBinaries = map[Platform]string{
	{OS: "windows", Arch: "amd64"}: "pmtiles-windows-x64.exe",
	{OS: "linux", Arch: "amd64"}:   "pmtiles-linux-x64",
	{OS: "darwin", Arch: "amd64"}:  "pmtiles-darwin-x64",
}

// Alternatives are the output kinds that never need the converter.
var Alternatives = []string{"mbtiles", "tiles"}

// Error describes a failed converter resolution.
type Error struct {
	Platform Platform
	Path     string // expected location, empty when the platform is unsupported
	Err      error  // ErrUnsupportedPlatform or ErrBinaryMissing
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrBinaryMissing) {
		return fmt.Sprintf("pmtiles binary not found at %s; bundled binaries must be placed in %s",
			e.Path, filepath.Dir(e.Path))
	}
	msg := fmt.Sprintf("PMTiles conversion is not supported on %s; use one of the alternative outputs: %s",
		e.Platform, strings.Join(Alternatives, ", "))
	if e.Platform.OS == "darwin" && e.Platform.Arch == "arm64" {
		msg += " (on Apple Silicon, run under Rosetta or install pmtiles manually and set pmtiles.bin)"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Table is an immutable mapping of platforms to bundled converter file names.
type Table struct {
	dir      string
	binaries map[Platform]string
	override string

	stat  func(string) (fs.FileInfo, error)
	chmod func(string, fs.FileMode) error
}

// Option customizes a Table.
type Option func(*Table)

// WithBinaries replaces the default platform table.
func WithBinaries(m map[Platform]string) Option {
	return func(t *Table) {
		t.binaries = make(map[Platform]string, len(m))
		for k, v := range m {
			t.binaries[Platform{OS: k.OS, Arch: NormalizeArch(k.Arch)}] = v
		}
	}
}

// WithOverride pins an explicit converter path for every platform.
func WithOverride(path string) Option {
	return func(t *Table) { t.override = strings.TrimSpace(path) }
}

// NewTable builds a table rooted at dir. An empty dir means "bin" next to the executable.
func NewTable(dir string, opts ...Option) *Table {
	t := &Table{
		dir:   strings.TrimSpace(dir),
		stat:  os.Stat,
		chmod: os.Chmod,
	}
	WithBinaries(DefaultBinaries)(t)
	for _, opt := range opts {
		opt(t)
	}
	if t.dir == "" {
		t.dir = DefaultDir()
	}
	return t
}

// DefaultDir returns the bin directory next to the running executable.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "bin"
	}
	return filepath.Join(filepath.Dir(exe), "bin")
}

// Dir returns the directory holding the bundled binaries.
func (t *Table) Dir() string { return t.dir }

// Platforms lists the platforms with a bundled converter, sorted.
func (t *Table) Platforms() []Platform {
	out := make([]Platform, 0, len(t.binaries))
	for p := range t.binaries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Resolve returns the converter path for the given platform.
//
// On non-Windows platforms the file is made executable before it is returned.
func (t *Table) Resolve(goos, arch string) (string, error) {
	p := Platform{OS: strings.ToLower(goos), Arch: NormalizeArch(arch)}

	path := t.override
	if path == "" {
		name, ok := t.binaries[p]
		if !ok {
			return "", &Error{Platform: p, Err: ErrUnsupportedPlatform}
		}
		path = filepath.Join(t.dir, name)
	}

	fi, err := t.stat(path)
	if err != nil || fi.IsDir() {
		return "", &Error{Platform: p, Path: path, Err: ErrBinaryMissing}
	}

	if p.OS != "windows" && fi.Mode().Perm() != 0o755 {
		if err := t.chmod(path, 0o755); err != nil {
			return "", fmt.Errorf("make %s executable: %w", path, err)
		}
	}
	return path, nil
}

// ResolveCurrent resolves the converter for the running platform.
func (t *Table) ResolveCurrent() (string, error) {
	p := Current()
	return t.Resolve(p.OS, p.Arch)
}

// Available reports whether Resolve would succeed for the platform.
func (t *Table) Available(goos, arch string) bool {
	_, err := t.Resolve(goos, arch)
	return err == nil
}
