package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/output"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

// probeTimeout bounds each "<tool> --help" probe.
const probeTimeout = 10 * time.Second

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools and platform support",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.check(cmd.Context())
			return nil
		},
	}
}

// probeTool reports whether tool answers --help with exit status 0.
func probeTool(ctx context.Context, ex toolexec.Executor, tool string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	res, err := ex.Run(ctx, toolexec.Command{Name: tool, Args: []string{"--help"}})
	return err == nil && res.Success()
}

func (c *cli) check(ctx context.Context) {
	w := c.stdout
	logger := xglog.WithComponent("check")
	fmt.Fprintln(w, "Checking dependencies and platform support...")
	fmt.Fprintln(w)

	ex := c.deps.executor(false)
	fmt.Fprintln(w, "Dependencies:")
	for _, tool := range []string{c.cfg.Tools.Rio, c.cfg.Tools.MBUtil} {
		fmt.Fprintf(w, "  %s: %s\n", tool, availability(probeTool(ctx, ex, tool)))
	}

	table := c.deps.converters(c.cfg)
	current := binary.Current()
	converter, convErr := table.ResolveCurrent()
	if convErr != nil {
		logger.Debug().Err(convErr).Msg("pmtiles converter unavailable")
		fmt.Fprintf(w, "  pmtiles converter: Missing (%v)\n", convErr)
	} else {
		fmt.Fprintf(w, "  pmtiles converter: Available (%s)\n", converter)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Platform: %s\n", current)
	fmt.Fprintln(w, "Supported output formats:")
	for _, k := range output.Supported(func() bool { return convErr == nil }) {
		fmt.Fprintf(w, "  %s: %s\n", k, k.Description())
	}
	fmt.Fprintf(w, "Bundled converter platforms (%s):\n", table.Dir())
	for _, p := range table.Platforms() {
		fmt.Fprintf(w, "  %s: %s\n", p, availability(table.Available(p.OS, p.Arch)))
	}

	tempDir := c.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	facts, errs := c.deps.probeHost(ctx, tempDir)
	for _, err := range errs {
		logger.Debug().Err(err).Msg("host probe incomplete")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Host:")
	if facts.Platform != "" {
		fmt.Fprintf(w, "  OS: %s %s (kernel %s)\n", facts.OS, facts.Platform, facts.KernelVersion)
	}
	fmt.Fprintf(w, "  CPUs: %d logical, %d physical\n", facts.LogicalCPUs, facts.PhysicalCPUs)
	if facts.TotalMemory > 0 {
		fmt.Fprintf(w, "  Memory: %s total, %s available\n", humanize.IBytes(facts.TotalMemory), humanize.IBytes(facts.AvailMemory))
	}
	if facts.TempFree > 0 {
		fmt.Fprintf(w, "  Free space in %s: %s\n", tempDir, humanize.IBytes(facts.TempFree))
	}
}

func availability(ok bool) string {
	if ok {
		return "Available"
	}
	return "Missing"
}
