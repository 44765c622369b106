package game

import "github.com/google/uuid"

// Player is a seat in a game. Seats are never removed once taken; disconnects
// only toggle Connected so the player can rejoin with the same id.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hand      []Tile `json:"hand"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	IsCPU     bool   `json:"is_cpu"`
}

// NewPlayer creates a connected human player with a fresh id.
func NewPlayer(name string) *Player {
	return &Player{
		ID:        uuid.NewString(),
		Name:      name,
		Connected: true,
	}
}

// HandTotal returns the pip total of the player's remaining tiles.
func (p *Player) HandTotal() int {
	total := 0
	for _, t := range p.Hand {
		total += t.Total()
	}
	return total
}

// HasTile reports whether the hand contains the tile, ignoring orientation.
func (p *Player) HasTile(tile Tile) bool {
	for _, t := range p.Hand {
		if t.Equals(tile) {
			return true
		}
	}
	return false
}

// removeTile removes the first hand tile equal to the given tile, ignoring
// orientation. Returns false if the tile is not in hand.
func (p *Player) removeTile(tile Tile) bool {
	for i, t := range p.Hand {
		if t.Equals(tile) {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}
