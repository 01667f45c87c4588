// Package tempscope owns the scratch directory of one pipeline run.
//
// Every path handed out by a Scope is removed when the Scope closes, whether
// the run succeeded, failed or was canceled. Removal failures are logged and
// counted but never returned.
package tempscope

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/metrics"
)

// DirPrefix is the prefix of every scope directory under the system temp dir.
const DirPrefix = "rgbweaver_"

// Scope tracks temporary paths allocated during one run.
type Scope struct {
	mu     sync.Mutex
	dir    string
	paths  []string
	closed bool
	logger zerolog.Logger

	// remove is os.RemoveAll; tests replace it to simulate failures.
	remove func(string) error
}

// Open creates a fresh private scratch directory under the system temp dir
// (or under parent when non-empty).
func Open(parent string, logger zerolog.Logger) (*Scope, error) {
	dir, err := os.MkdirTemp(parent, DirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create temp scope: %w", err)
	}
	logger.Debug().Str(xglog.FieldTempDir, dir).Msg("temp scope opened")
	return &Scope{
		dir:    dir,
		logger: logger,
		remove: os.RemoveAll,
	}, nil
}

// Dir returns the scope's scratch directory.
func (s *Scope) Dir() string {
	return s.dir
}

// NewPath allocates and tracks a new path inside the scope. The file is not created.
func (s *Scope) NewPath(suffix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := filepath.Join(s.dir, fmt.Sprintf("temp_%d%s", len(s.paths), suffix))
	s.paths = append(s.paths, p)
	return p
}

// Track adds an externally created path to the scope.
func (s *Scope) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Paths returns the tracked paths in allocation order.
func (s *Scope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Close removes every tracked path and then the scope directory.
// It is idempotent and always returns nil so it can be deferred unconditionally.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	cleaned, failed := 0, 0
	for _, p := range s.paths {
		if _, err := os.Lstat(p); os.IsNotExist(err) {
			continue
		}
		if err := s.remove(p); err != nil {
			failed++
			metrics.IncTempCleanupFailure()
			s.logger.Warn().Err(err).Str(xglog.FieldPath, p).Msg("could not delete temporary path")
			continue
		}
		cleaned++
	}

	// The directory sweep also catches tracked paths whose individual removal failed.
	if err := s.remove(s.dir); err != nil {
		metrics.IncTempCleanupFailure()
		s.logger.Warn().Err(err).Str(xglog.FieldTempDir, s.dir).Msg("could not delete temp directory")
	}

	s.logger.Debug().
		Int("cleaned", cleaned).
		Int("failed", failed).
		Str(xglog.FieldTempDir, s.dir).
		Msg("temp scope closed")
	return nil
}
