package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/rgbweaver/internal/metrics"
)

// TileStats summarizes an extracted tile directory.
type TileStats struct {
	Total      int
	TotalBytes int64
	// PerZoom counts files laid out as <zoom>/<x>/<y>.<format>. Files elsewhere
	// count toward Total only.
	PerZoom map[int]int
}

// AvgTileBytes is the mean tile size rounded to the nearest byte.
func (s TileStats) AvgTileBytes() int64 {
	if s.Total == 0 {
		return 0
	}
	return (s.TotalBytes + int64(s.Total)/2) / int64(s.Total)
}

// CollectTileStats counts every *.<format> file under dir. Top-level entries
// are walked concurrently, at most workers at a time.
func CollectTileStats(ctx context.Context, dir, format string, workers int) (TileStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return TileStats{}, err
	}
	if workers < 1 {
		workers = 1
	}

	suffix := "." + format
	stats := TileStats{PerZoom: make(map[int]int)}
	var mu sync.Mutex
	add := func(total int, bytes int64, zoom int, zoomOK bool) {
		mu.Lock()
		defer mu.Unlock()
		stats.Total += total
		stats.TotalBytes += bytes
		if zoomOK && total > 0 {
			stats.PerZoom[zoom] += total
		}
	}

	// Top-level files are counted before any walker starts.
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
			continue
		}
		if !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return TileStats{}, err
		}
		add(1, info.Size(), 0, false)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range dirs {
		g.Go(func() error {
			zoom, zerr := strconv.Atoi(name)
			var deep, shallow int
			var bytes int64
			root := filepath.Join(dir, name)
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					return err
				}
				bytes += info.Size()
				rel, _ := filepath.Rel(dir, path)
				if len(strings.Split(filepath.ToSlash(rel), "/")) >= 3 {
					deep++
				} else {
					shallow++
				}
				return nil
			})
			if err != nil {
				return err
			}
			add(deep, 0, zoom, zerr == nil)
			add(shallow, bytes, 0, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TileStats{}, err
	}
	return stats, nil
}

func (r *run) collectStats(ctx context.Context) (StageResult, error) {
	dir := r.spec.TilesDir()
	return r.runStage(ctx, StageStats, "", func(ctx context.Context) (StageResult, error) {
		st, err := CollectTileStats(ctx, dir, r.req.Options.Format, r.req.Options.Workers)
		if err != nil {
			return StageResult{OutputPath: dir}, stageErr(StageStats, ErrExtractionFailed, "count tiles in %s: %v", dir, err)
		}
		metrics.RecordTilesPerZoom(st.PerZoom)
		return StageResult{OutputPath: dir, Metadata: Metadata{
			"format":              "tiles",
			"total_tiles":         st.Total,
			"total_size_bytes":    st.TotalBytes,
			"total_size_mb":       sizeMB(st.TotalBytes),
			"tiles_per_zoom":      st.PerZoom,
			"avg_tile_size_bytes": st.AvgTileBytes(),
		}}, nil
	})
}
