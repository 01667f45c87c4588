// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package toolexec

import (
	"strings"
	"sync"
)

// LineRing is a thread-safe ring buffer for capturing the last N lines of tool output.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	size    int
	partial strings.Builder
	onLine  func(string)
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50 // Default
	}
	return &LineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer. Lines split across writes are joined before storing.
// Carriage returns (progress bars) are treated as line breaks.
func (r *LineRing) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := strings.ReplaceAll(string(p), "\r", "\n")
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			r.partial.WriteString(s)
			break
		}
		r.partial.WriteString(s[:idx])
		r.push(r.partial.String())
		r.partial.Reset()
		s = s[idx+1:]
	}
	return len(p), nil
}

// Flush stores any pending partial line.
func (r *LineRing) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.partial.Len() > 0 {
		r.push(r.partial.String())
		r.partial.Reset()
	}
}

func (r *LineRing) push(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
	if r.onLine != nil {
		r.onLine(line)
	}
}

// LastN returns the last N lines in chronological order.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.size {
		n = r.size
	}

	// r.head is the next write position, so it is also the oldest slot once wrapped.
	ordered := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.size
		if r.lines[idx] != "" {
			ordered = append(ordered, r.lines[idx])
		}
	}

	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}
