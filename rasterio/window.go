package rasterio

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"

	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// Window crops r to bbox with all_touched semantics: a cell is kept if it
// intersects bbox at all, not only if its centre falls inside it. bbox must
// be expressed in r's CRS; reprojection is never performed implicitly.
func (r *Raster) Window(bbox *geom.Bounds) (*Raster, error) {
	minRow, minCol, _ := r.Transform.RowCol(bbox.Min.X, bbox.Max.Y, r.NRows(), r.NCols())
	maxRow, maxCol, _ := r.Transform.RowCol(bbox.Max.X, bbox.Min.Y, r.NRows(), r.NCols())

	minRow = clampInt(minRow, 0, r.NRows()-1)
	maxRow = clampInt(maxRow, 0, r.NRows()-1)
	minCol = clampInt(minCol, 0, r.NCols()-1)
	maxCol = clampInt(maxCol, 0, r.NCols()-1)

	if maxRow < minRow || maxCol < minCol {
		return nil, tperror.New("rasterio.Window", tperror.EmptyWindow).
			WithParam("bbox", fmt.Sprintf("%+v", bbox))
	}

	nrows := maxRow - minRow + 1
	ncols := maxCol - minCol + 1
	out := sparse.ZerosDense(nrows, ncols)
	any := false
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			v := r.At(minRow+i, minCol+j)
			out.Set(v, i, j)
			if !r.IsNoData(v) {
				any = true
			}
		}
	}
	if !any {
		return nil, tperror.New("rasterio.Window", tperror.EmptyWindow).
			WithParam("bbox", fmt.Sprintf("%+v", bbox))
	}

	return &Raster{
		Data:      out,
		Transform: r.Transform.Sub(minRow, minCol),
		CRS:       r.CRS,
		CRSDef:    r.CRSDef,
		NoData:    r.NoData,
	}, nil
}

// ClipToPolygon crops r to the bounding box of poly, then masks to nodata
// every cell for which cellTouches finds none of its four corners and not
// its centre inside or on poly. all_touched semantics apply at the
// bounding-box stage only; a cell that poly crosses without covering a
// corner or the centre (a thin sliver, or a polygon smaller than the cell)
// is masked out.
func (r *Raster) ClipToPolygon(poly geom.Polygonal) (*Raster, error) {
	b := poly.Bounds()
	win, err := r.Window(b)
	if err != nil {
		return nil, err
	}
	for i := 0; i < win.NRows(); i++ {
		for j := 0; j < win.NCols(); j++ {
			v := win.At(i, j)
			if win.IsNoData(v) {
				continue
			}
			if !cellTouches(win.Transform, i, j, poly) {
				win.Data.Set(win.NoData, i, j)
			}
		}
	}
	return win, nil
}

// CellPolygon returns the unit-square polygon of cell (row, col) under t.
func CellPolygon(t Transform, row, col int) geom.Polygon {
	x0, y0 := t.XY(row, col)
	x1, y1 := x0+t.Dx, y0-t.Dy
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

// cellTouches reports whether any corner or the centre of cell (row, col)
// falls inside or on the edge of poly; this is the all_touched semantic
// applied at sub-cell granularity.
func cellTouches(t Transform, row, col int, poly geom.Polygonal) bool {
	cell := CellPolygon(t, row, col)
	for _, pt := range cell[0] {
		if pt.Within(poly) != geom.Outside {
			return true
		}
	}
	cx, cy := t.Center(row, col)
	return geom.Point{X: cx, Y: cy}.Within(poly) != geom.Outside
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
