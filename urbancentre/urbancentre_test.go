package urbancentre

import (
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/rasterio"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// tinyGrid builds the 7x10 synthetic raster from the scenario, with 1000m
// cells and north-up transform anchored at (0, 7000).
func tinyGrid(t *testing.T) *rasterio.Raster {
	t.Helper()
	rows := [][]float64{
		{5000, 5000, 5000, 1500, 1500, 0, 0, 0, 5000, 5000},
		{5000, 5000, 5000, 0, 0, 0, 0, 0, 0, 0},
		{5000, 5000, 5000, 1500, 1500, 0, 0, 0, 0, 0},
		{1500, 1500, 1500, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 500, 500, 100, 0, 0, 0},
		{1000, 0, 0, 0, 100, 40, 5000, 0, 0, 0},
	}
	data := sparse.ZerosDense(7, 10)
	for i, row := range rows {
		for j, v := range row {
			data.Set(v, i, j)
		}
	}
	tr := rasterio.Transform{X0: 0, Y0: 7000, Dx: 1000, Dy: 1000}
	return rasterio.New(data, tr, nil, "", -9999)
}

func TestExtractTinyGrid(t *testing.T) {
	r := tinyGrid(t)
	bbox := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10000, Y: 7000}}
	seed := geom.Point{X: 1500, Y: 5500} // centre of cell (row=1, col=1)

	a, err := extract(r, bbox, seed, Defaults())
	require.NoError(t, err)

	require.NotNil(t, a.VectorizedUC)
	require.NotNil(t, a.Buffer)
	require.NotNil(t, a.BBox)

	ucArea := a.VectorizedUC.Area()
	bufArea := a.Buffer.Area()
	bboxArea := a.BBox.Area()
	assert.Greater(t, bufArea, ucArea, "buffer must strictly contain the urban centre")
	assert.Greater(t, bboxArea, bufArea, "bbox must strictly contain the buffer")

	labels := a.Labels()
	require.Len(t, labels, 3)
	assert.Equal(t, LabelVectorizedUC, labels[0].Label)
	assert.Equal(t, LabelBuffer, labels[1].Label)
	assert.Equal(t, LabelBBox, labels[2].Label)

	// The isolated top-right 5000-cell pair sums to 10000, well under the
	// 50000 cluster threshold, so it must not be part of the selected
	// cluster: its cells lie outside the vectorised polygon's bounds.
	topRight := geom.Point{X: 8500, Y: 6500}
	assert.NotEqual(t, geom.Inside, topRight.Within(a.VectorizedUC))
}

func TestExtractSeedOutside(t *testing.T) {
	r := tinyGrid(t)
	bbox := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10000, Y: 7000}}
	seed := geom.Point{X: 10000000, Y: 10000000}

	_, err := extract(r, bbox, seed, Defaults())
	require.Error(t, err)
	var tpe *tperror.Error
	require.ErrorAs(t, err, &tpe)
	assert.Equal(t, tperror.SeedOutside, tpe.Kind)
}

func TestExtractThresholdRejectsAll(t *testing.T) {
	r := tinyGrid(t)
	bbox := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10000, Y: 7000}}
	seed := geom.Point{X: 1500, Y: 5500}

	p := Defaults()
	p.CellPopThreshold = 150000
	_, err := extract(r, bbox, seed, p)
	require.Error(t, err)
	var tpe *tperror.Error
	require.ErrorAs(t, err, &tpe)
	assert.Equal(t, tperror.ThresholdRejectsAll, tpe.Kind)
}

func TestExtractBBoxCRSMismatch(t *testing.T) {
	r := tinyGrid(t)
	bbox := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10000, Y: 7000}}
	seed := geom.Point{X: 1500, Y: 5500}

	p := Defaults()
	p.BBoxCRS = crs.MustParse(crs.Geographic)
	_, err := extract(r, bbox, seed, p)
	require.Error(t, err)
	var tpe *tperror.Error
	require.ErrorAs(t, err, &tpe)
	assert.Equal(t, tperror.CRSMismatch, tpe.Kind)
}

func TestWriteShapefile(t *testing.T) {
	r := tinyGrid(t)
	bbox := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10000, Y: 7000}}
	seed := geom.Point{X: 1500, Y: 5500}
	a, err := extract(r, bbox, seed, Defaults())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "urban_centre.shp")
	require.NoError(t, WriteShapefile(path, a))
}

func TestFillGapsFixedPoint(t *testing.T) {
	// A single-cell hole bordered on all four sides by label 1 closes at
	// threshold 5.
	nrows, ncols := 3, 3
	labels := []int{
		1, 1, 1,
		1, 0, 1,
		1, 1, 1,
	}
	out := fillGaps(labels, nrows, ncols, 5)
	assert.Equal(t, 1, out[1*ncols+1])

	// At threshold 8 a partially-enclosed hole (fewer than 8 neighbours
	// set) stays open.
	labels2 := []int{
		1, 1, 0,
		1, 0, 0,
		0, 0, 0,
	}
	out2 := fillGaps(labels2, nrows, ncols, 8)
	assert.Equal(t, 0, out2[1*ncols+1])
}
