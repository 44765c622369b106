// Package game implements the double-six dominoes engine: tiles, hands,
// the picking grid, turn rules, CPU play and match scoring. The package is
// purely in-memory and deterministic given a seeded rand source; callers own
// locking and the wall clock.
package game

import "fmt"

// Tile is a single domino. Left and Right are pip counts 0..6; orientation is
// meaningful once the tile sits on the board but not while it is in a hand.
type Tile struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Canonical returns the tile's pips ordered low, high. Two tiles are the same
// physical domino iff their canonical forms match.
func (t Tile) Canonical() (int, int) {
	if t.Left <= t.Right {
		return t.Left, t.Right
	}
	return t.Right, t.Left
}

// Equals reports whether two tiles are the same physical domino, ignoring
// orientation.
func (t Tile) Equals(other Tile) bool {
	a, b := t.Canonical()
	c, d := other.Canonical()
	return a == c && b == d
}

// IsDouble reports whether both halves carry the same pip.
func (t Tile) IsDouble() bool {
	return t.Left == t.Right
}

// Total returns the tile's pip sum.
func (t Tile) Total() int {
	return t.Left + t.Right
}

// Flipped returns the tile with its halves swapped.
func (t Tile) Flipped() Tile {
	return Tile{Left: t.Right, Right: t.Left}
}

// HasPip reports whether either half carries the pip.
func (t Tile) HasPip(pip int) bool {
	return t.Left == pip || t.Right == pip
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d|%d]", t.Left, t.Right)
}

// FullSet returns the 28 tiles of a double-six set in canonical order.
func FullSet() []Tile {
	tiles := make([]Tile, 0, 28)
	for left := 0; left <= 6; left++ {
		for right := left; right <= 6; right++ {
			tiles = append(tiles, Tile{Left: left, Right: right})
		}
	}
	return tiles
}

// PlayedTile is a tile on the board together with its play-order position.
// Position is monotonic in play order regardless of which end the tile joined.
type PlayedTile struct {
	Tile     Tile `json:"domino"`
	Position int  `json:"position"`
}

// BoardEnds holds the two open pip values of the chain. Both are nil while the
// board is empty.
type BoardEnds struct {
	Left  *int `json:"left"`
	Right *int `json:"right"`
}

// Side names an end of the chain.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Valid reports whether s names a real side.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}
