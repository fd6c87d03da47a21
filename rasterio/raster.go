// Package rasterio reads and writes the gridded population rasters consumed
// by the urban-centre extractor and population conditioner. Rasters are
// stored as NetCDF-classic files via github.com/ctessum/cdf, the same
// container the teacher corpus uses for its own gridded data, with the
// raster's affine transform, CRS and nodata value carried as file
// attributes.
package rasterio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/tperror"
	"github.com/ctessum/geom/proj"
)

const (
	variableName = "population"
	rowDim       = "row"
	colDim       = "col"
)

// Raster is a single-band gridded population raster.
type Raster struct {
	Data      *sparse.DenseArray // shape [nrows, ncols]
	Transform Transform
	CRS       *proj.SR
	CRSDef    string // the PROJ4 string CRS was parsed from, preserved for round-tripping to disk
	NoData    float64
}

// NRows returns the number of rows in the raster.
func (r *Raster) NRows() int { return r.Data.Shape[0] }

// NCols returns the number of columns in the raster.
func (r *Raster) NCols() int { return r.Data.Shape[1] }

// At returns the value at (row, col), or r.NoData if out of bounds.
func (r *Raster) At(row, col int) float64 {
	if row < 0 || row >= r.NRows() || col < 0 || col >= r.NCols() {
		return r.NoData
	}
	return r.Data.Get(row, col)
}

// IsNoData reports whether v is the raster's nodata sentinel.
func (r *Raster) IsNoData(v float64) bool {
	return v == r.NoData
}

// New builds a Raster around an existing dense array.
func New(data *sparse.DenseArray, t Transform, sr *proj.SR, crsDef string, nodata float64) *Raster {
	return &Raster{Data: data, Transform: t, CRS: sr, CRSDef: crsDef, NoData: nodata}
}

// Open reads a raster from a NetCDF-classic file written by Create.
func Open(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tperror.New("rasterio.Open", tperror.InputNotFound).WithParam("path", path)
		}
		return nil, fmt.Errorf("rasterio: opening %s: %w", path, err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, tperror.New("rasterio.Open", tperror.FormatMismatch).WithParam("path", path).WithCause(err)
	}
	h := nc.Header
	if !hasVariable(h, variableName) {
		return nil, tperror.New("rasterio.Open", tperror.FormatMismatch).
			WithParam("variable", variableName).WithCause(fmt.Errorf("missing variable %q", variableName))
	}
	dims := h.Lengths(variableName)
	if len(dims) != 2 {
		return nil, tperror.New("rasterio.Open", tperror.FormatMismatch).
			WithParam("dims", dims).WithCause(fmt.Errorf("expected a 2-D raster variable"))
	}
	nrows, ncols := dims[0], dims[1]

	rdr := nc.Reader(variableName, nil, nil)
	buf := make([]float64, nrows*ncols)
	if _, err := rdr.Read(buf); err != nil {
		return nil, fmt.Errorf("rasterio: reading %s: %w", path, err)
	}
	data := sparse.ZerosDense(nrows, ncols)
	copy(data.Elements, buf)

	t := Transform{
		X0: attrFloat(h, variableName, "x0"),
		Y0: attrFloat(h, variableName, "y0"),
		Dx: attrFloat(h, variableName, "dx"),
		Dy: attrFloat(h, variableName, "dy"),
	}
	projStr, _ := h.GetAttribute(variableName, "crs").(string)
	sr, err := crs.Parse(projStr)
	if err != nil {
		return nil, fmt.Errorf("rasterio: parsing CRS attribute of %s: %w", path, err)
	}
	nodata := attrFloat(h, variableName, "nodata")

	return &Raster{Data: data, Transform: t, CRS: sr, CRSDef: projStr, NoData: nodata}, nil
}

func hasVariable(h *cdf.Header, name string) bool {
	for _, v := range h.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func attrFloat(h *cdf.Header, v, a string) float64 {
	val := h.GetAttribute(v, a)
	switch x := val.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	default:
		return 0
	}
}

// Create writes r to a new NetCDF-classic file at path, overwriting it if it
// already exists. The write is atomic with respect to readers: the file is
// built under a temporary name and renamed into place on success, so a
// crash mid-write never leaves a partially-written raster at path.
func Create(path string, r *Raster) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("rasterio: creating %s: %w", tmp, err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()

	h := cdf.NewHeader(
		[]string{rowDim, colDim},
		[]int{r.NRows(), r.NCols()},
	)
	h.AddVariable(variableName, []string{rowDim, colDim}, []float64{0})
	h.AddAttribute(variableName, "x0", r.Transform.X0)
	h.AddAttribute(variableName, "y0", r.Transform.Y0)
	h.AddAttribute(variableName, "dx", r.Transform.Dx)
	h.AddAttribute(variableName, "dy", r.Transform.Dy)
	h.AddAttribute(variableName, "nodata", r.NoData)
	h.AddAttribute(variableName, "crs", r.CRSDef)
	if errs := h.Check(); len(errs) != 0 {
		return fmt.Errorf("rasterio: building header for %s: %v", path, errs)
	}
	h.Define()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("rasterio: writing header of %s: %w", path, err)
	}
	w := nc.Writer(variableName, nil, nil)
	if _, err = w.Write(r.Data.Elements); err != nil {
		return fmt.Errorf("rasterio: writing data of %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("rasterio: closing %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rasterio: finalizing %s: %w", path, err)
	}
	return nil
}
