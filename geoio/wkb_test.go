package geoio

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePointWKB(t *testing.T) {
	p := geom.Point{X: -2.9997, Y: 51.5886}
	b, err := EncodeWKB(p)
	require.NoError(t, err)

	g, err := DecodeWKB(b)
	require.NoError(t, err)
	got, ok := g.(geom.Point)
	require.True(t, ok)
	assert.InDelta(t, p.X, got.X, 1e-12)
	assert.InDelta(t, p.Y, got.Y, 1e-12)
}

func TestEncodeDecodePolygonWKB(t *testing.T) {
	poly := geom.Polygon{{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
	}}
	b, err := EncodeWKB(poly)
	require.NoError(t, err)

	g, err := DecodeWKB(b)
	require.NoError(t, err)
	got, ok := g.(geom.Polygon)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Len(t, got[0], 5)
	for i, pt := range poly[0] {
		assert.InDelta(t, pt.X, got[0][i].X, 1e-12)
		assert.InDelta(t, pt.Y, got[0][i].Y, 1e-12)
	}
}

func TestDecodeWKBRejectsUnknownType(t *testing.T) {
	_, err := DecodeWKB([]byte{1, 99, 0, 0, 0})
	assert.Error(t, err)
}
