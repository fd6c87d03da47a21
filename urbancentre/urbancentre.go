// Package urbancentre extracts the urban-centre polygon, its buffer and its
// bounding box from a low-resolution population raster: threshold,
// connected-component clustering, cluster-population filtering,
// morphological gap filling, seed-based cluster selection and
// vectorisation, in that order.
package urbancentre

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/internal/unionfind"
	"github.com/datasciencecampus/transport-network-performance/rasterio"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// Label names for the artifact table, in the fixed order the output table
// must present them.
const (
	LabelVectorizedUC = "vectorized_uc"
	LabelBuffer       = "buffer"
	LabelBBox         = "bbox"
)

// Params configures a single extraction call. Zero-value fields are filled
// in by Defaults.
type Params struct {
	CellPopThreshold    float64    // cell is "above threshold" at population >= this
	ClusterPopThreshold float64    // cluster survives if summed population >= this
	Diag                bool       // 8-neighbour connectivity if true, else 4-neighbour
	CellFillThreshold   int        // mode-filter majority count, accepted range [5, 8]
	BufferSize          *unit.Unit // length; defaults to 10000m

	// SeedCRS is the CRS the seed point is expressed in. If nil, it is
	// assumed to already be in the raster's CRS.
	SeedCRS *proj.SR

	// BBoxCRS is the CRS the bbox passed to Extract is expressed in. If
	// nil, it is assumed to already be in the raster's CRS and no check is
	// performed. If set and it does not match the raster's CRS, Extract
	// returns CRSMismatch rather than silently windowing against the
	// wrong coordinates.
	BBoxCRS *proj.SR

	// Name and Country optionally identify the city this extraction is
	// for. When set, they are carried on the resulting Artifact and
	// persisted alongside it, so downstream stages (conditioning,
	// aggregation) can recover them without the caller re-supplying them.
	Name, Country string

	Log logrus.FieldLogger
}

// Defaults returns the parameter defaults named in the component's
// contract.
func Defaults() Params {
	return Params{
		CellPopThreshold:    1500,
		ClusterPopThreshold: 50000,
		Diag:                false,
		CellFillThreshold:   5,
		BufferSize:          unit.New(10000, unit.Meter),
	}
}

func (p Params) withDefaults() Params {
	d := Defaults()
	if p.CellPopThreshold == 0 {
		p.CellPopThreshold = d.CellPopThreshold
	}
	if p.ClusterPopThreshold == 0 {
		p.ClusterPopThreshold = d.ClusterPopThreshold
	}
	if p.CellFillThreshold == 0 {
		p.CellFillThreshold = d.CellFillThreshold
	}
	if p.BufferSize == nil {
		p.BufferSize = d.BufferSize
	}
	if p.Log == nil {
		p.Log = logrus.StandardLogger()
	}
	return p
}

// Artifact is the three labelled polygons this package produces.
type Artifact struct {
	VectorizedUC  geom.Polygon
	Buffer        geom.Polygon
	BBox          geom.Polygon
	CRS           *proj.SR
	CRSDef        string
	Name, Country string
}

// Labels returns the artifact's polygons in the fixed label order required
// for persistence.
func (a *Artifact) Labels() []struct {
	Label string
	Geom  geom.Polygon
} {
	return []struct {
		Label string
		Geom  geom.Polygon
	}{
		{LabelVectorizedUC, a.VectorizedUC},
		{LabelBuffer, a.Buffer},
		{LabelBBox, a.BBox},
	}
}

// Extract runs the full pipeline against the raster at path, cropped to
// bbox, selecting the cluster containing seed.
func Extract(path string, bbox *geom.Bounds, seed geom.Point, p Params) (*Artifact, error) {
	p = p.withDefaults()
	if p.CellFillThreshold < 5 || p.CellFillThreshold > 8 {
		return nil, tperror.New("urbancentre.Extract", tperror.FormatMismatch).
			WithParam("cell_fill_threshold", p.CellFillThreshold).
			WithCause(fmt.Errorf("must be in [5, 8]"))
	}

	r, err := rasterio.Open(path)
	if err != nil {
		return nil, err
	}
	return extract(r, bbox, seed, p)
}

func extract(r *rasterio.Raster, bbox *geom.Bounds, seed geom.Point, p Params) (*Artifact, error) {
	if p.BBoxCRS != nil && !crs.Equal(p.BBoxCRS, r.CRS) {
		return nil, tperror.New("urbancentre.Extract", tperror.CRSMismatch).
			WithParam("bbox_crs", p.BBoxCRS).
			WithCause(fmt.Errorf("raster CRS is %s", r.CRSDef))
	}

	win, err := r.Window(bbox)
	if err != nil {
		return nil, err
	}
	p.Log.WithFields(logrus.Fields{"nrows": win.NRows(), "ncols": win.NCols()}).Debug("urbancentre: window cropped")

	labels, nlabels, err := clusterAboveThreshold(win, p)
	if err != nil {
		return nil, err
	}

	labels, nlabels = filterByClusterPopulation(win, labels, nlabels, p)
	if nlabels == 0 {
		return nil, tperror.New("urbancentre.Extract", tperror.ThresholdRejectsAll).
			WithParam("cluster_pop_threshold", p.ClusterPopThreshold)
	}

	labels = fillGaps(labels, win.NRows(), win.NCols(), p.CellFillThreshold)

	seedXY := seed
	if p.SeedCRS != nil && !crs.Equal(p.SeedCRS, win.CRS) {
		seedXY, err = crs.ReprojectPoint(seed, p.SeedCRS, win.CRS)
		if err != nil {
			return nil, fmt.Errorf("urbancentre: reprojecting seed: %w", err)
		}
	}
	row, col, within := win.Transform.RowCol(seedXY.X, seedXY.Y, win.NRows(), win.NCols())
	if !within {
		return nil, tperror.New("urbancentre.Extract", tperror.SeedOutside).
			WithParam("seed", fmt.Sprintf("(%v, %v)", seedXY.X, seedXY.Y))
	}
	chosen := labels[row*win.NCols()+col]
	if chosen == 0 {
		return nil, tperror.New("urbancentre.Extract", tperror.SeedUnassigned).
			WithParam("seed", fmt.Sprintf("(%v, %v)", seedXY.X, seedXY.Y))
	}

	vec := vectorise(win.Transform, labels, win.NRows(), win.NCols(), chosen)

	buf, err := bufferPolygon(vec, p.BufferSize.Value())
	if err != nil {
		return nil, err
	}
	bbEnv := envelope(buf.Bounds())

	return &Artifact{
		VectorizedUC: vec,
		Buffer:       buf,
		BBox:         bbEnv,
		CRS:          win.CRS,
		CRSDef:       win.CRSDef,
		Name:         p.Name,
		Country:      p.Country,
	}, nil
}

// clusterAboveThreshold labels 4- or 8-connected components of cells with
// population >= p.CellPopThreshold. Label 0 means "below threshold";
// surviving clusters are numbered from 1.
func clusterAboveThreshold(r *rasterio.Raster, p Params) ([]int, int, error) {
	nrows, ncols := r.NRows(), r.NCols()
	n := nrows * ncols
	above := make([]bool, n)
	anyAbove := false
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			v := r.At(i, j)
			if !r.IsNoData(v) && v >= p.CellPopThreshold {
				above[i*ncols+j] = true
				anyAbove = true
			}
		}
	}
	if !anyAbove {
		return nil, 0, tperror.New("urbancentre.Extract", tperror.ThresholdRejectsAll).
			WithParam("cell_pop_threshold", p.CellPopThreshold)
	}

	dsu := unionfind.New(n)
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			if !above[i*ncols+j] {
				continue
			}
			idx := i*ncols + j
			if j+1 < ncols && above[idx+1] {
				dsu.Union(idx, idx+1)
			}
			if i+1 < nrows && above[idx+ncols] {
				dsu.Union(idx, idx+ncols)
			}
			if p.Diag {
				if i+1 < nrows && j+1 < ncols && above[idx+ncols+1] {
					dsu.Union(idx, idx+ncols+1)
				}
				if i+1 < nrows && j-1 >= 0 && above[idx+ncols-1] {
					dsu.Union(idx, idx+ncols-1)
				}
			}
		}
	}

	labels := make([]int, n)
	rootLabel := make(map[int]int)
	next := 1
	for idx := range above {
		if !above[idx] {
			continue
		}
		root := dsu.Find(idx)
		l, ok := rootLabel[root]
		if !ok {
			l = next
			rootLabel[root] = l
			next++
		}
		labels[idx] = l
	}
	return labels, next - 1, nil
}

// filterByClusterPopulation zeroes out (discards) clusters whose summed
// raster population is below p.ClusterPopThreshold, and renumbers the
// survivors contiguously from 1.
func filterByClusterPopulation(r *rasterio.Raster, labels []int, nlabels int, p Params) ([]int, int) {
	ncols := r.NCols()
	sums := make([]float64, nlabels+1)
	for i := 0; i < r.NRows(); i++ {
		for j := 0; j < ncols; j++ {
			l := labels[i*ncols+j]
			if l == 0 {
				continue
			}
			v := r.At(i, j)
			if !r.IsNoData(v) {
				sums[l] += v
			}
		}
	}
	remap := make([]int, nlabels+1)
	next := 1
	for l := 1; l <= nlabels; l++ {
		if sums[l] >= p.ClusterPopThreshold {
			remap[l] = next
			next++
		}
	}
	out := make([]int, len(labels))
	for idx, l := range labels {
		if l != 0 {
			out[idx] = remap[l]
		}
	}
	return out, next - 1
}

// fillGaps repeatedly applies a 3x3 majority filter to unassigned (label 0)
// cells until the grid stops changing. A cell takes the mode label of its
// 3x3 neighbourhood (edges treated as zero-padded) if that label's count
// reaches threshold.
func fillGaps(labels []int, nrows, ncols, threshold int) []int {
	cur := append([]int(nil), labels...)
	for {
		next := append([]int(nil), cur...)
		changed := false
		for i := 0; i < nrows; i++ {
			for j := 0; j < ncols; j++ {
				idx := i*ncols + j
				if cur[idx] != 0 {
					continue
				}
				counts := make(map[int]int)
				for di := -1; di <= 1; di++ {
					for dj := -1; dj <= 1; dj++ {
						ni, nj := i+di, j+dj
						if ni < 0 || ni >= nrows || nj < 0 || nj >= ncols {
							continue
						}
						l := cur[ni*ncols+nj]
						if l != 0 {
							counts[l]++
						}
					}
				}
				mode, modeCount := 0, 0
				for l, c := range counts {
					if c > modeCount || (c == modeCount && l < mode) {
						mode, modeCount = l, c
					}
				}
				if modeCount >= threshold {
					next[idx] = mode
					changed = true
				}
			}
		}
		cur = next
		if !changed {
			return cur
		}
	}
}

// vectorise unions the unit-square polygons of every cell carrying label
// into a single (possibly multi-ring) polygon.
func vectorise(t rasterio.Transform, labels []int, nrows, ncols, label int) geom.Polygon {
	var out geom.Polygon
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			if labels[i*ncols+j] != label {
				continue
			}
			cell := rasterio.CellPolygon(t, i, j)
			if out == nil {
				out = cell
			} else {
				out = out.Union(cell)
			}
		}
	}
	return out
}

// bufferPolygon approximates the Minkowski sum of p with a disc of radius
// distance metres: every vertex grows a small regular polygon "knob" of
// that radius, and the knobs are unioned with p. A modest facet count keeps
// the result simple without appreciably understating the buffer.
func bufferPolygon(p geom.Polygon, distance float64) (geom.Polygon, error) {
	if distance <= 0 {
		return nil, tperror.New("urbancentre.Extract", tperror.FormatMismatch).
			WithParam("buffer_size", distance).WithCause(fmt.Errorf("must be positive"))
	}
	const facets = 16
	out := p
	for _, ring := range p {
		for _, v := range ring {
			out = out.Union(disc(v, distance, facets))
		}
	}
	return out, nil
}

func disc(center geom.Point, radius float64, facets int) geom.Polygon {
	ring := make([]geom.Point, facets+1)
	for i := 0; i < facets; i++ {
		theta := 2 * math.Pi * float64(i) / float64(facets)
		ring[i] = geom.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
	}
	ring[facets] = ring[0]
	return geom.Polygon{ring}
}

// envelope returns the axis-aligned rectangle of b as a polygon.
func envelope(b *geom.Bounds) geom.Polygon {
	return geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Min.Y},
	}}
}
