package population

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/rasterio"
)

func writeTestRaster(t *testing.T, path string) {
	t.Helper()
	data := sparse.ZerosDense(3, 3)
	vals := []float64{
		10, 20, -9999,
		5, 15, 8,
		-9999, 12, 30,
	}
	for i, v := range vals {
		data.Set(v, i/3, i%3)
	}
	tr := rasterio.Transform{X0: 0, Y0: 300, Dx: 100, Dy: 100}
	sr := crs.MustParse(crs.Geographic)
	r := rasterio.New(data, tr, sr, crs.Geographic, -9999)
	require.NoError(t, rasterio.Create(path, r))
}

func TestConditionBasic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/pop.nc"
	writeTestRaster(t, path)

	aoi := geom.Polygon{{
		{X: 0, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 300}, {X: 0, Y: 300}, {X: 0, Y: 0},
	}}
	uc := geom.Polygon{{
		{X: 0, Y: 100}, {X: 200, Y: 100}, {X: 200, Y: 300}, {X: 0, Y: 300}, {X: 0, Y: 100},
	}}

	tbl, err := Condition(path, aoi, uc, Params{})
	require.NoError(t, err)

	// nodata cells excluded: 9 cells minus 2 nodata = 7.
	assert.Len(t, tbl.Cells, 7)
	assert.Len(t, tbl.Centroids, 7)

	for i, c := range tbl.Cells {
		assert.Equal(t, int64(i), c.ID)
		assert.Greater(t, c.Population, 0.0)
	}
	for i, c := range tbl.Centroids {
		assert.Equal(t, int64(i), c.ID)
	}

	// ids are dense [0, N).
	seen := make(map[int64]bool)
	for _, c := range tbl.Cells {
		seen[c.ID] = true
	}
	assert.Len(t, seen, len(tbl.Cells))
}

func TestConditionThresholdAndRound(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/pop.nc"
	writeTestRaster(t, path)

	aoi := geom.Polygon{{
		{X: 0, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 300}, {X: 0, Y: 300}, {X: 0, Y: 0},
	}}
	uc := geom.Polygon{{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}}}

	thresh := 15.0
	tbl, err := Condition(path, aoi, uc, Params{Round: true, Threshold: &thresh})
	require.NoError(t, err)
	for _, c := range tbl.Cells {
		assert.GreaterOrEqual(t, c.Population, thresh)
	}
}
