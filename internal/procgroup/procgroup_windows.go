// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"os/exec"
)

// No process groups on Windows; only the root process is killed.
func set(cmd *exec.Cmd) {}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
