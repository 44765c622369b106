package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullSetHas28UniqueTiles(t *testing.T) {
	tiles := FullSet()
	require.Len(t, tiles, 28)

	seen := make(map[[2]int]bool)
	for _, tile := range tiles {
		lo, hi := tile.Canonical()
		key := [2]int{lo, hi}
		assert.False(t, seen[key], "duplicate tile %s", tile)
		seen[key] = true
		assert.GreaterOrEqual(t, lo, 0)
		assert.LessOrEqual(t, hi, 6)
	}
}

func TestTileEqualityIgnoresOrientation(t *testing.T) {
	a := Tile{Left: 2, Right: 5}
	b := Tile{Left: 5, Right: 2}

	assert.True(t, a.Equals(b))
	assert.True(t, b.Equals(a))
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(Tile{Left: 2, Right: 4}))
}

func TestTileProperties(t *testing.T) {
	double := Tile{Left: 4, Right: 4}
	plain := Tile{Left: 1, Right: 6}

	assert.True(t, double.IsDouble())
	assert.False(t, plain.IsDouble())
	assert.Equal(t, 8, double.Total())
	assert.Equal(t, 7, plain.Total())
	assert.Equal(t, Tile{Left: 6, Right: 1}, plain.Flipped())
	assert.True(t, plain.HasPip(1))
	assert.True(t, plain.HasPip(6))
	assert.False(t, plain.HasPip(3))
	assert.Equal(t, "[1|6]", plain.String())
}

func TestSideValid(t *testing.T) {
	assert.True(t, SideLeft.Valid())
	assert.True(t, SideRight.Valid())
	assert.False(t, Side("top").Valid())
	assert.False(t, Side("").Valid())
}
