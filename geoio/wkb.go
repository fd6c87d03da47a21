// Package geoio persists the pipeline's tabular artifacts (population
// tables, centroid tables, urban-centre geometries and travel-time
// batches) as columnar Parquet files via github.com/apache/arrow-go,
// following the on-disk contract in the pipeline's external-interfaces
// design: explicit geometry columns encoded as WKB, and a CRS recorded
// alongside the table.
package geoio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// wkb byte-order and geometry-type codes, as used by the OGC Simple
// Features WKB encoding. Only the subset this pipeline ever persists
// (Point and Polygon, 2D, no SRID) is implemented.
const (
	wkbNDR         = 1
	wkbTypePoint   = 1
	wkbTypePolygon = 3
)

// EncodeWKB encodes a Point or Polygon as well-known binary. No other
// geometry type is ever persisted by this pipeline.
func EncodeWKB(g geom.Geom) ([]byte, error) {
	switch v := g.(type) {
	case geom.Point:
		return encodePointWKB(v), nil
	case geom.Polygon:
		return encodePolygonWKB(v), nil
	default:
		return nil, fmt.Errorf("geoio: unsupported geometry type %T for WKB encoding", g)
	}
}

func encodePointWKB(p geom.Point) []byte {
	buf := make([]byte, 1+4+8+8)
	buf[0] = wkbNDR
	binary.LittleEndian.PutUint32(buf[1:5], wkbTypePoint)
	binary.LittleEndian.PutUint64(buf[5:13], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(buf[13:21], math.Float64bits(p.Y))
	return buf
}

func encodePolygonWKB(p geom.Polygon) []byte {
	size := 1 + 4 + 4
	for _, ring := range p {
		size += 4 + len(ring)*16
	}
	buf := make([]byte, size)
	off := 0
	buf[off] = wkbNDR
	off++
	binary.LittleEndian.PutUint32(buf[off:off+4], wkbTypePolygon)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(p)))
	off += 4
	for _, ring := range p {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(ring)))
		off += 4
		for _, pt := range ring {
			binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(pt.X))
			off += 8
			binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(pt.Y))
			off += 8
		}
	}
	return buf
}

// DecodeWKB decodes a Point or Polygon previously produced by EncodeWKB.
func DecodeWKB(b []byte) (geom.Geom, error) {
	if len(b) < 5 {
		return nil, fmt.Errorf("geoio: WKB too short (%d bytes)", len(b))
	}
	if b[0] != wkbNDR {
		return nil, fmt.Errorf("geoio: only little-endian WKB is supported")
	}
	typ := binary.LittleEndian.Uint32(b[1:5])
	switch typ {
	case wkbTypePoint:
		if len(b) != 21 {
			return nil, fmt.Errorf("geoio: malformed point WKB")
		}
		x := math.Float64frombits(binary.LittleEndian.Uint64(b[5:13]))
		y := math.Float64frombits(binary.LittleEndian.Uint64(b[13:21]))
		return geom.Point{X: x, Y: y}, nil
	case wkbTypePolygon:
		off := 5
		if len(b) < off+4 {
			return nil, fmt.Errorf("geoio: malformed polygon WKB")
		}
		nrings := int(binary.LittleEndian.Uint32(b[off : off+4]))
		off += 4
		poly := make(geom.Polygon, nrings)
		for i := 0; i < nrings; i++ {
			if len(b) < off+4 {
				return nil, fmt.Errorf("geoio: malformed polygon WKB ring header")
			}
			npts := int(binary.LittleEndian.Uint32(b[off : off+4]))
			off += 4
			ring := make([]geom.Point, npts)
			for j := 0; j < npts; j++ {
				if len(b) < off+16 {
					return nil, fmt.Errorf("geoio: malformed polygon WKB point")
				}
				x := math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
				y := math.Float64frombits(binary.LittleEndian.Uint64(b[off+8 : off+16]))
				ring[j] = geom.Point{X: x, Y: y}
				off += 16
			}
			poly[i] = ring
		}
		return poly, nil
	default:
		return nil, fmt.Errorf("geoio: unsupported WKB geometry type %d", typ)
	}
}
