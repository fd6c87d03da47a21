package unionfind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datasciencecampus/transport-network-performance/internal/unionfind"
)

func TestUnionFindSingletons(t *testing.T) {
	d := unionfind.New(5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, d.Find(i))
	}
}

func TestUnionFindMerges(t *testing.T) {
	d := unionfind.New(6)
	assert.True(t, d.Union(0, 1))
	assert.True(t, d.Union(1, 2))
	assert.False(t, d.Union(0, 2), "already connected via 1")

	assert.True(t, d.Connected(0, 2))
	assert.False(t, d.Connected(0, 3))

	d.Union(3, 4)
	comps := d.Components()
	assert.Len(t, comps, 3) // {0,1,2}, {3,4}, {5}

	sizes := map[int]bool{}
	for _, members := range comps {
		sizes[len(members)] = true
	}
	assert.True(t, sizes[3])
	assert.True(t, sizes[2])
	assert.True(t, sizes[1])
}

func TestUnionFindPathCompression(t *testing.T) {
	d := unionfind.New(4)
	d.Union(0, 1)
	d.Union(1, 2)
	d.Union(2, 3)
	root := d.Find(0)
	for i := 1; i < 4; i++ {
		assert.Equal(t, root, d.Find(i))
	}
}
