// Package crs wraps github.com/ctessum/geom/proj to make the pipeline's
// coordinate-reference-system conversions explicit: every geometry that
// crosses a CRS boundary goes through a Transform built here, never a bare
// field copy.
package crs

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Geographic is the geographic (lon/lat, degrees) CRS used by the routing
// engine, expressed as a PROJ4 string understood by proj.Parse.
const Geographic = "+proj=longlat +datum=WGS84 +no_defs"

// MustParse parses a PROJ4 string and panics on error. It is intended for
// package-level constants such as Geographic, not for user-supplied CRS
// strings.
func MustParse(def string) *proj.SR {
	sr, err := proj.Parse(def)
	if err != nil {
		panic(fmt.Sprintf("crs: invalid built-in definition %q: %v", def, err))
	}
	return sr
}

// Parse parses a PROJ4 string into a spatial reference.
func Parse(def string) (*proj.SR, error) {
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("crs: parsing %q: %w", def, err)
	}
	return sr, nil
}

// IsMetric reports whether sr's linear unit is metres, the precondition for
// any operation this pipeline documents as "metric" (buffering, area).
func IsMetric(sr *proj.SR) bool {
	if sr == nil {
		return false
	}
	switch sr.Units {
	case "", "m":
		return sr.ToMeter == 0 || sr.ToMeter == 1
	default:
		return false
	}
}

// Equal reports whether two spatial references describe the same CRS
// closely enough that no reprojection is required between them.
func Equal(a, b *proj.SR) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b, 6)
}

// Reproject transforms g from srFrom to srTo, returning g unchanged if the
// two CRSs are already equal.
func Reproject(g geom.Geom, srFrom, srTo *proj.SR) (geom.Geom, error) {
	if Equal(srFrom, srTo) {
		return g, nil
	}
	t, err := srFrom.NewTransform(srTo)
	if err != nil {
		return nil, fmt.Errorf("crs: building transform: %w", err)
	}
	out, err := g.Transform(t)
	if err != nil {
		return nil, fmt.Errorf("crs: transforming geometry: %w", err)
	}
	return out, nil
}

// ReprojectPoint transforms a single point.
func ReprojectPoint(p geom.Point, srFrom, srTo *proj.SR) (geom.Point, error) {
	if Equal(srFrom, srTo) {
		return p, nil
	}
	t, err := srFrom.NewTransform(srTo)
	if err != nil {
		return geom.Point{}, fmt.Errorf("crs: building transform: %w", err)
	}
	x, y, err := t(p.X, p.Y)
	if err != nil {
		return geom.Point{}, fmt.Errorf("crs: transforming point: %w", err)
	}
	return geom.Point{X: x, Y: y}, nil
}
