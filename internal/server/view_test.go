package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunosmmm/barkak-domino/internal/game"
)

func viewFixture(now time.Time) (*game.Game, *game.Match) {
	g := game.NewGame("deadbeef", game.VariantBlock, 2, now)
	g.Players = []*game.Player{
		{ID: "p1", Name: "Alice", Hand: []game.Tile{{Left: 1, Right: 2}, {Left: 3, Right: 4}}, Connected: true},
		{ID: "p2", Name: "Mandrill", Hand: []game.Tile{{Left: 5, Right: 6}}, Connected: true, IsCPU: true},
	}
	m := game.NewMatch("feedface", g, 100, now)
	return g, m
}

func TestViewHidesOtherHands(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, m := viewFixture(now)
	g.Status = game.StatusPlaying
	g.CurrentTurn = "p1"

	view := buildPlayerView(g, m, "p1", now)

	assert.Equal(t, []game.Tile{{Left: 1, Right: 2}, {Left: 3, Right: 4}}, view.YourHand)
	assert.Equal(t, "p1", view.YourPlayerID)

	require.Len(t, view.Players, 2)
	assert.Equal(t, 2, view.Players[0].TileCount)
	assert.True(t, view.Players[0].IsYou)
	assert.Equal(t, 1, view.Players[1].TileCount)
	assert.False(t, view.Players[1].IsYou)
	assert.True(t, view.Players[1].IsCPU)
	assert.Equal(t, 1, view.Players[1].Position)

	other := buildPlayerView(g, m, "p2", now)
	assert.Equal(t, []game.Tile{{Left: 5, Right: 6}}, other.YourHand, "each addressee sees only their own tiles")
}

func TestViewTimers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, m := viewFixture(now)

	g.Status = game.StatusPlaying
	g.CurrentTurn = "p1"
	g.TurnTimeout = 60
	g.TurnStartedAt = now.Add(-10 * time.Second)

	view := buildPlayerView(g, m, "p1", now)
	require.NotNil(t, view.TurnTimer)
	assert.Equal(t, 60, view.TurnTimer.Timeout)
	assert.InDelta(t, 50.0, view.TurnTimer.Remaining, 0.001)
	assert.Equal(t, "2025-06-01T11:59:50Z", view.TurnTimer.StartedAt)
	assert.Nil(t, view.PickingTimer)

	// Overdue timers clamp at zero.
	g.TurnStartedAt = now.Add(-90 * time.Second)
	view = buildPlayerView(g, m, "p1", now)
	assert.Zero(t, view.TurnTimer.Remaining)

	// Disabled timers are omitted.
	g.TurnTimeout = 0
	view = buildPlayerView(g, m, "p1", now)
	assert.Nil(t, view.TurnTimer)
}

func TestViewPickingExposesPositionsNotTiles(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, m := viewFixture(now)
	g.Status = game.StatusPicking
	g.PickingStartedAt = now.Add(-5 * time.Second)
	g.PickingTimeout = 45
	g.PickingTiles = map[int]game.Tile{9: {Left: 6, Right: 6}, 3: {Left: 0, Right: 0}, 27: {Left: 1, Right: 2}}

	view := buildPlayerView(g, m, "p1", now)
	assert.Equal(t, []int{3, 9, 27}, view.AvailableTilePositions, "sorted positions only")
	require.NotNil(t, view.PickingTimer)
	assert.InDelta(t, 40.0, view.PickingTimer.Remaining, 0.001)
}

func TestViewMatchEmbed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, m := viewFixture(now)
	m.IndividualScores["p1"] = 30
	m.CompletedRounds = append(m.CompletedRounds, game.RoundResult{
		RoundNumber: 1, WinnerID: "p1", PointsAwarded: 30,
	})

	view := buildPlayerView(g, m, "p1", now)
	require.NotNil(t, view.Match)
	assert.Equal(t, "feedface", view.Match.ID)
	assert.Equal(t, 2, view.Match.CurrentRound)
	assert.Equal(t, 30, view.Match.Scores["p1"])
	assert.Equal(t, 100, view.Match.TargetScore)
	assert.Len(t, view.Match.CompletedRounds, 1)
	assert.Empty(t, view.Match.MatchWinner)

	view = buildPlayerView(g, nil, "p1", now)
	assert.Nil(t, view.Match)
}
