// Package host gathers the machine facts used for worker advice and the check command.
package host

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Facts describes the host. Zero values mean the probe failed.
type Facts struct {
	OS            string
	Arch          string
	Platform      string
	KernelVersion string
	LogicalCPUs   int
	PhysicalCPUs  int
	TotalMemory   uint64
	AvailMemory   uint64
	// TempFree is the free space on the filesystem holding the temp directory.
	TempFree uint64
}

// Probe collects facts. Individual probe failures are returned joined in errs;
// the facts that could be read are still filled in.
func Probe(ctx context.Context, tempDir string) (Facts, []error) {
	f := Facts{OS: runtime.GOOS, Arch: runtime.GOARCH}
	var errs []error

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		f.LogicalCPUs = n
	} else {
		f.LogicalCPUs = runtime.NumCPU()
		errs = append(errs, err)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		f.PhysicalCPUs = n
	} else {
		errs = append(errs, err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		f.TotalMemory = vm.Total
		f.AvailMemory = vm.Available
	} else {
		errs = append(errs, err)
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		f.Platform = info.Platform
		f.KernelVersion = info.KernelVersion
	} else {
		errs = append(errs, err)
	}
	if tempDir != "" {
		if u, err := disk.UsageWithContext(ctx, tempDir); err == nil {
			f.TempFree = u.Free
		} else {
			errs = append(errs, err)
		}
	}
	return f, errs
}

// LogicalCPUs returns the logical CPU count, falling back to the Go runtime's view.
func LogicalCPUs(ctx context.Context) int {
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
