package game

import (
	rand "math/rand/v2"
	"slices"
	"time"
)

// ClaimTile moves a face-down tile from the picking grid to the player's
// hand. When every hand reaches HandSize the game transitions straight to
// PLAYING.
func ClaimTile(g *Game, playerID string, gridPos int, now time.Time) error {
	if g.Status != StatusPicking {
		return ErrNotPicking
	}
	p := g.Player(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if len(p.Hand) >= HandSize {
		return ErrHandFull
	}
	tile, ok := g.PickingTiles[gridPos]
	if !ok {
		return ErrTileNotAvailable
	}

	delete(g.PickingTiles, gridPos)
	p.Hand = append(p.Hand, tile)

	if pickingComplete(g) {
		startPlayingPhase(g, "", now)
	}
	return nil
}

// pickingComplete reports whether every seat holds a full hand.
func pickingComplete(g *Game) bool {
	for _, p := range g.Players {
		if len(p.Hand) < HandSize {
			return false
		}
	}
	return true
}

// CPUClaimTile claims a uniformly random available grid position for a CPU
// seat. Returns the claimed position.
func CPUClaimTile(g *Game, cpuPlayerID string, rng *rand.Rand, now time.Time) (int, error) {
	if g.Status != StatusPicking {
		return 0, ErrNotPicking
	}
	p := g.Player(cpuPlayerID)
	if p == nil || !p.IsCPU {
		return 0, ErrNotCPUPlayer
	}
	if len(p.Hand) >= HandSize {
		return 0, ErrHandFull
	}
	if len(g.PickingTiles) == 0 {
		return 0, ErrNoTilesLeft
	}

	pos := randomGridPosition(g, rng)
	if err := ClaimTile(g, cpuPlayerID, pos, now); err != nil {
		return 0, err
	}
	return pos, nil
}

// AutoAssignRemainingTiles fills a player's hand with random grid tiles until
// it is full or the grid empties. Used by the picking timeout sweep. Returns
// the grid positions that were forced.
func AutoAssignRemainingTiles(g *Game, playerID string, rng *rand.Rand, now time.Time) []int {
	p := g.Player(playerID)
	if p == nil {
		return nil
	}

	var assigned []int
	for len(p.Hand) < HandSize && len(g.PickingTiles) > 0 {
		pos := randomGridPosition(g, rng)
		p.Hand = append(p.Hand, g.PickingTiles[pos])
		delete(g.PickingTiles, pos)
		assigned = append(assigned, pos)
	}

	if pickingComplete(g) && g.Status == StatusPicking {
		startPlayingPhase(g, "", now)
	}
	return assigned
}

// randomGridPosition picks a uniformly random occupied grid position.
// Iterating the map would be random too, but not reproducibly so under a
// seeded source.
func randomGridPosition(g *Game, rng *rand.Rand) int {
	positions := make([]int, 0, len(g.PickingTiles))
	for pos := range g.PickingTiles {
		positions = append(positions, pos)
	}
	// Map iteration order varies run to run; sort before sampling.
	slices.Sort(positions)
	return positions[rng.IntN(len(positions))]
}
