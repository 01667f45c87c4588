// Package mbtiles reads summary information from MBTiles archives.
//
// Only the documented tables (tiles, metadata) are queried; the archive is never written.
package mbtiles

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// Summary describes the content of an archive.
type Summary struct {
	TilesPerZoom map[int]int
	TotalTiles   int
	Metadata     map[string]string
}

// Zooms returns the zoom levels present, ascending.
func (s Summary) Zooms() []int {
	out := make([]int, 0, len(s.TilesPerZoom))
	for z := range s.TilesPerZoom {
		out = append(out, z)
	}
	sort.Ints(out)
	return out
}

// Inspect opens path read-only and counts its tiles per zoom level.
func Inspect(ctx context.Context, path string) (Summary, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Summary{}, err
	}
	if fi.IsDir() {
		return Summary{}, fmt.Errorf("%s is a directory", path)
	}

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return Summary{}, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Summary{}, fmt.Errorf("open mbtiles: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	s := Summary{TilesPerZoom: make(map[int]int), Metadata: make(map[string]string)}
	if err := countTiles(ctx, db, &s); err != nil {
		return Summary{}, err
	}
	if err := readMetadata(ctx, db, &s); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// readOnlyDSN builds a SQLite URI that opens path read-only on every pooled connection.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}

func countTiles(ctx context.Context, db *sql.DB, s *Summary) error {
	rows, err := db.QueryContext(ctx, `SELECT zoom_level, COUNT(*) FROM tiles GROUP BY zoom_level`)
	if err != nil {
		return fmt.Errorf("count tiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var zoom, n int
		if err := rows.Scan(&zoom, &n); err != nil {
			return fmt.Errorf("scan tile count: %w", err)
		}
		s.TilesPerZoom[zoom] = n
		s.TotalTiles += n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tile counts: %w", err)
	}
	return nil
}

func readMetadata(ctx context.Context, db *sql.DB, s *Summary) error {
	rows, err := db.QueryContext(ctx, `SELECT name, value FROM metadata`)
	if err != nil {
		// The metadata table is optional.
		return nil
	}
	defer rows.Close()
	for rows.Next() {
		var name, value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("scan metadata: %w", err)
		}
		if name.Valid {
			s.Metadata[name.String] = value.String
		}
	}
	return rows.Err()
}
