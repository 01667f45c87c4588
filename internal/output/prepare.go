// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Prepare makes the destination ready for writing.
//
// Archives get their parent directory created; an existing file is removed only with force.
// Directories must be absent or empty unless force is set, in which case the tree is removed.
func Prepare(spec Spec, force bool) error {
	if spec.Kind.IsDirectory() {
		return prepareDir(spec.Path, force)
	}
	return prepareFile(spec.Path, force)
}

func prepareFile(path string, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output parent: %w", err)
		}
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrOutputExists, path)
	}
	if !force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrOutputExists, path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove existing output: %w", err)
	}
	return nil
}

func prepareDir(path string, force bool) error {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat output: %w", err)
	case !fi.IsDir():
		return fmt.Errorf("%w: %s exists and is not a directory", ErrOutputExists, path)
	default:
		empty, err := isEmptyDir(path)
		if err != nil {
			return fmt.Errorf("inspect output directory: %w", err)
		}
		if !empty {
			if !force {
				return fmt.Errorf("%w: directory %s is not empty (use --force to overwrite)", ErrOutputExists, path)
			}
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("remove existing output: %w", err)
			}
		}
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
