// Package traveltime presents a single logical travel-time table over
// what odbatch actually writes to disk: either one Parquet file, or a
// directory of batch-<label>-<n>.parquet partitions. Callers never need
// to know which.
package traveltime

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datasciencecampus/transport-network-performance/geoio"
)

// Store is a read-only view over a travel-time matrix persisted as one or
// more Parquet files under a single path.
type Store struct {
	paths []string
}

// Open resolves path to the set of Parquet files backing the travel-time
// table: path itself if it is a file, or every batch-*.parquet file
// directly inside it if it is a directory (other Parquet tables sharing the
// directory are ignored). No rows are read until Rows or Stream is called.
func Open(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("traveltime: %w", err)
	}
	if !info.IsDir() {
		return &Store{paths: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("traveltime: reading %s: %w", path, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".parquet" || !strings.HasPrefix(e.Name(), "batch-") {
			continue
		}
		paths = append(paths, filepath.Join(path, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("traveltime: no parquet files found under %s", path)
	}
	return &Store{paths: paths}, nil
}

// Rows reads and concatenates every partition's rows. Use Stream instead
// for tables too large to hold in memory at once.
func (s *Store) Rows() ([]geoio.TravelTimeRow, error) {
	var all []geoio.TravelTimeRow
	err := s.Stream(func(batch []geoio.TravelTimeRow) error {
		all = append(all, batch...)
		return nil
	})
	return all, err
}

// Stream calls fn once per partition file with that partition's rows,
// in path order, stopping at the first error fn returns.
func (s *Store) Stream(fn func([]geoio.TravelTimeRow) error) error {
	for _, p := range s.paths {
		rows, err := geoio.ReadTravelTimeTable(p)
		if err != nil {
			return err
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
	return nil
}

// Paths returns the partition files backing the store, in read order.
func (s *Store) Paths() []string {
	return append([]string(nil), s.paths...)
}
