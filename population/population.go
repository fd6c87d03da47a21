// Package population conditions a high-resolution population raster into
// the per-cell and per-centroid tables the OD batcher and accessibility
// aggregator consume: clip to an area of interest, optionally round and
// threshold, vectorise, derive centroids, and tag urban-centre membership.
package population

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/rasterio"
)

// Cell is one row of the population table.
type Cell struct {
	ID                int64
	Population        float64
	Geometry          geom.Polygon
	WithinUrbanCentre bool
}

// Centroid is one row of the centroid table, in the geographic CRS.
type Centroid struct {
	ID                int64
	Point             geom.Point
	WithinUrbanCentre bool
}

// Params configures a single conditioning call.
type Params struct {
	AOICRS        *proj.SR // CRS of aoi, nil means "already in raster CRS"
	Round         bool
	Threshold     *float64 // nil means "no threshold"
	GeographicCRS *proj.SR // destination CRS for centroids; defaults to crs.Geographic
	Log           logrus.FieldLogger
}

func (p Params) withDefaults() Params {
	if p.GeographicCRS == nil {
		p.GeographicCRS = crs.MustParse(crs.Geographic)
	}
	if p.Log == nil {
		p.Log = logrus.StandardLogger()
	}
	return p
}

// Tables is the pair of tables Condition produces.
type Tables struct {
	Cells     []Cell
	Centroids []Centroid
}

// TagWithin applies the within-urban-centre predicate to every cell and
// centroid in t, against uc (expressed in the raster's CRS for cells, and
// reprojected to the centroid CRS for centroids). It is the single
// reusable implementation of the "within_urban_centre" tagging rule used
// both here and by callers retagging a persisted table against a new
// urban-centre geometry.
func TagWithin(t *Tables, ucRasterCRS geom.Polygon, ucGeographic geom.Polygon) {
	for i := range t.Cells {
		c := t.Cells[i].Geometry.Centroid()
		t.Cells[i].WithinUrbanCentre = c.Within(ucRasterCRS) != geom.Outside
	}
	for i := range t.Centroids {
		t.Centroids[i].WithinUrbanCentre = t.Centroids[i].Point.Within(ucGeographic) != geom.Outside
	}
}

// Condition clips the raster at path to aoi, conditions it per p, and
// derives the cell and centroid tables, tagging both against uc (the
// urban-centre polygon in the raster's native CRS).
func Condition(path string, aoi geom.Polygonal, uc geom.Polygon, p Params) (*Tables, error) {
	p = p.withDefaults()
	r, err := rasterio.Open(path)
	if err != nil {
		return nil, err
	}

	aoiInRasterCRS := aoi
	if p.AOICRS != nil && !crs.Equal(p.AOICRS, r.CRS) {
		g, err := crs.Reproject(aoi, p.AOICRS, r.CRS)
		if err != nil {
			return nil, err
		}
		aoiInRasterCRS = g.(geom.Polygonal)
	}

	clipped, err := r.ClipToPolygon(aoiInRasterCRS)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, clipped.NRows()*clipped.NCols())
	for i := 0; i < clipped.NRows(); i++ {
		for j := 0; j < clipped.NCols(); j++ {
			v := clipped.At(i, j)
			if clipped.IsNoData(v) {
				continue
			}
			if p.Round {
				v = math.RoundToEven(v)
			}
			if p.Threshold != nil && v < *p.Threshold {
				continue
			}
			cells = append(cells, Cell{
				Population: v,
				Geometry:   rasterio.CellPolygon(clipped.Transform, i, j),
			})
		}
	}
	for i := range cells {
		cells[i].ID = int64(i)
	}

	centroids := make([]Centroid, len(cells))
	for i, c := range cells {
		pt := c.Geometry.Centroid()
		if !crs.Equal(clipped.CRS, p.GeographicCRS) {
			var err error
			pt, err = crs.ReprojectPoint(pt, clipped.CRS, p.GeographicCRS)
			if err != nil {
				return nil, err
			}
		}
		centroids[i] = Centroid{ID: c.ID, Point: pt}
	}

	t := &Tables{Cells: cells, Centroids: centroids}

	ucGeographic := uc
	if !crs.Equal(clipped.CRS, p.GeographicCRS) {
		g, err := crs.Reproject(uc, clipped.CRS, p.GeographicCRS)
		if err != nil {
			return nil, err
		}
		ucGeographic = g.(geom.Polygon)
	}
	TagWithin(t, uc, ucGeographic)

	return t, nil
}
