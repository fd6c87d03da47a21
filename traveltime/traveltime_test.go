package traveltime

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasciencecampus/transport-network-performance/geoio"
)

func TestOpenSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch-1-0.parquet")
	rows := []geoio.TravelTimeRow{{FromID: 1, ToID: 2, TravelTime: 10, Valid: true}}
	require.NoError(t, geoio.WriteTravelTimeTable(path, rows))

	store, err := Open(path)
	require.NoError(t, err)
	got, err := store.Rows()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestOpenDirectoryConcatenates(t *testing.T) {
	dir := t.TempDir()
	rowsA := []geoio.TravelTimeRow{{FromID: 1, ToID: 2, TravelTime: 10, Valid: true}}
	rowsB := []geoio.TravelTimeRow{{FromID: 3, ToID: 4, TravelTime: 20, Valid: true}}
	require.NoError(t, geoio.WriteTravelTimeTable(filepath.Join(dir, "batch-1-0.parquet"), rowsA))
	require.NoError(t, geoio.WriteTravelTimeTable(filepath.Join(dir, "batch-3-0.parquet"), rowsB))

	store, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, store.Paths(), 2)

	got, err := store.Rows()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpenEmptyDirectoryErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.Error(t, err)
}

func TestStreamStopsOnError(t *testing.T) {
	dir := t.TempDir()
	rows := []geoio.TravelTimeRow{{FromID: 1, ToID: 2, TravelTime: 10, Valid: true}}
	require.NoError(t, geoio.WriteTravelTimeTable(filepath.Join(dir, "batch-1-0.parquet"), rows))

	store, err := Open(dir)
	require.NoError(t, err)

	called := 0
	err = store.Stream(func([]geoio.TravelTimeRow) error {
		called++
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, 1, called)
}
