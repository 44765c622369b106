package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedGame(winner string, hands ...[]Tile) *Game {
	g := playingGame(hands...)
	g.Status = StatusFinished
	g.WinnerID = winner
	return g
}

func TestRoundPointsDomino(t *testing.T) {
	g := finishedGame("p1",
		nil,
		[]Tile{{2, 3}, {4, 4}},
		[]Tile{{1, 1}},
	)

	winner, points, pips := RoundPoints(g)
	assert.Equal(t, "p1", winner)
	assert.Equal(t, 15, points, "domino takes the sum of all opponents' pips")
	assert.Equal(t, map[string]int{"p1": 0, "p2": 13, "p3": 2}, pips)
}

func TestRoundPointsBlocked(t *testing.T) {
	g := finishedGame("p1",
		[]Tile{{1, 2}},
		[]Tile{{3, 4}},
	)

	_, points, _ := RoundPoints(g)
	assert.Equal(t, 4, points, "blocked winner takes opponents minus own pips")
}

func TestRoundPointsBlockedClampsAtZero(t *testing.T) {
	// A blocked winner can hold more pips than the sum of the losers when
	// seat-order broke a tie; points never go negative.
	g := finishedGame("p1",
		[]Tile{{3, 4}},
		[]Tile{{1, 2}},
	)

	_, points, _ := RoundPoints(g)
	assert.Equal(t, 0, points)
}

func TestRoundPointsNoWinner(t *testing.T) {
	g := finishedGame("",
		[]Tile{{1, 2}},
		[]Tile{{3, 4}},
	)

	winner, points, pips := RoundPoints(g)
	assert.Empty(t, winner)
	assert.Zero(t, points)
	assert.Len(t, pips, 2)
}

func TestTeamRoundPointsDomino(t *testing.T) {
	g := finishedGame("p1",
		nil,                    // p1, team A
		[]Tile{{2, 3}},         // p2, team B
		[]Tile{{1, 1}},         // p3, team A
		[]Tile{{5, 6}, {0, 1}}, // p4, team B
	)
	teamA := []string{"p1", "p3"}
	teamB := []string{"p2", "p4"}

	team, points, pips := TeamRoundPoints(g, teamA, teamB)
	assert.Equal(t, TeamA, team)
	assert.Equal(t, 5+12, points, "domino takes the opposing team's summed pips")
	require.Len(t, pips, 4)
	assert.Equal(t, 2, pips["p3"], "partner pips are reported but not charged")
}

func TestTeamRoundPointsBlocked(t *testing.T) {
	g := finishedGame("p2",
		[]Tile{{5, 5}}, // p1, team A: 10
		[]Tile{{1, 0}}, // p2, team B: 1
		[]Tile{{2, 2}}, // p3, team A: 4
		[]Tile{{3, 3}}, // p4, team B: 6
	)
	team, points, _ := TeamRoundPoints(g, []string{"p1", "p3"}, []string{"p2", "p4"})
	assert.Equal(t, TeamB, team)
	assert.Equal(t, 14-7, points, "blocked team scoring takes the positive difference")
}

func TestTeamRoundPointsBlockedClampsAtZero(t *testing.T) {
	g := finishedGame("p2",
		[]Tile{{1, 0}}, // team A: 1
		[]Tile{{5, 5}}, // team B: 10
		[]Tile{{2, 0}}, // team A: 2
		[]Tile{{3, 3}}, // team B: 6
	)
	team, points, _ := TeamRoundPoints(g, []string{"p1", "p3"}, []string{"p2", "p4"})
	assert.Equal(t, TeamB, team)
	assert.Zero(t, points)
}
