package game

import (
	"fmt"
	"time"

	"github.com/brunosmmm/barkak-domino/internal/randutil"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// playingGame builds a game in PLAYING with the given hands dealt to players
// p1, p2, ... in seat order. p1 holds the opening turn.
func playingGame(hands ...[]Tile) *Game {
	g := NewGame("deadbeef", VariantBlock, len(hands), testStart)
	for i, hand := range hands {
		g.Players = append(g.Players, &Player{
			ID:        fmt.Sprintf("p%d", i+1),
			Name:      fmt.Sprintf("Player %d", i+1),
			Hand:      append([]Tile{}, hand...),
			Connected: true,
		})
	}
	g.Status = StatusPlaying
	g.CurrentTurn = "p1"
	g.TurnStartedAt = testStart
	return g
}

// pickingGame builds a game in PICKING with the full set shuffled onto the
// grid under a fixed seed.
func pickingGame(players int) *Game {
	g := NewGame("deadbeef", VariantBlock, players, testStart)
	for i := 0; i < players; i++ {
		g.Players = append(g.Players, &Player{
			ID:        fmt.Sprintf("p%d", i+1),
			Name:      fmt.Sprintf("Player %d", i+1),
			Connected: true,
		})
	}
	StartGame(g, randutil.New(42), testStart)
	return g
}

// allTilesOf collects every tile currently tracked by the game, for the tile
// conservation checks.
func allTilesOf(g *Game) []Tile {
	var tiles []Tile
	for _, p := range g.Players {
		tiles = append(tiles, p.Hand...)
	}
	tiles = append(tiles, g.Boneyard...)
	for _, pt := range g.Board {
		tiles = append(tiles, pt.Tile)
	}
	for _, t := range g.PickingTiles {
		tiles = append(tiles, t)
	}
	return tiles
}
