package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/ManuGH/rgbweaver/internal/output"
	"github.com/ManuGH/rgbweaver/internal/pipeline"
)

func printSummary(w io.Writer, res *pipeline.Result, verbose bool) {
	md := res.Metadata
	fmt.Fprintf(w, "\nSuccess! Generated %s: %s\n", res.Kind, res.OutputPath)

	if n, ok := md.Int64("total_tiles"); ok && n > 0 {
		fmt.Fprintf(w, "Total tiles: %s\n", humanize.Comma(n))
	}
	if n, ok := md.Int64("file_size_bytes"); ok && n > 0 && !res.Kind.IsDirectory() {
		fmt.Fprintf(w, "File size: %s\n", humanize.IBytes(uint64(n)))
	} else if n, ok := md.Int64("total_size_bytes"); ok && n > 0 {
		fmt.Fprintf(w, "Total size: %s\n", humanize.IBytes(uint64(n)))
	}
	if res.Kind == output.KindPMTiles {
		if ratio, ok := md.Float("compression_ratio_percent"); ok && ratio != 0 {
			fmt.Fprintf(w, "PMTiles compression: %.1f%% size reduction\n", ratio)
		}
	}
	if perZoom, ok := md["tiles_per_zoom"].(map[int]int); ok && verbose {
		zooms := make([]int, 0, len(perZoom))
		for z := range perZoom {
			zooms = append(zooms, z)
		}
		sort.Ints(zooms)
		fmt.Fprintln(w, "Tiles per zoom:")
		for _, z := range zooms {
			fmt.Fprintf(w, "  z%d: %s\n", z, humanize.Comma(int64(perZoom[z])))
		}
	}
	if verbose {
		for _, s := range res.Stages {
			fmt.Fprintf(w, "Stage %s: %.1fs\n", s.Stage, s.Duration.Seconds())
		}
	}
	fmt.Fprintf(w, "Total time: %.1fs\n", res.TotalTime.Seconds())
}
