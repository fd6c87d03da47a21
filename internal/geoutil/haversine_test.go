package geoutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datasciencecampus/transport-network-performance/internal/geoutil"
)

func TestHaversineKm(t *testing.T) {
	d := geoutil.HaversineKm(51.5886, -2.9997, 51.5879, -2.9967)
	assert.InDelta(t, 0.217, d, 0.001)
}

func TestHaversineKmZero(t *testing.T) {
	d := geoutil.HaversineKm(51.5886, -2.9997, 51.5886, -2.9997)
	assert.Equal(t, 0.0, d)
}
