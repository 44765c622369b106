package game

import (
	rand "math/rand/v2"
	"time"
)

// ValidMove is a tile/side pair that is legal for a player right now.
type ValidMove struct {
	Tile Tile `json:"domino"`
	Side Side `json:"side"`
}

// canPlayOn reports whether the tile can abut the given open end. A nil end
// means the board is empty and anything plays.
func canPlayOn(tile Tile, end *int) bool {
	if end == nil {
		return true
	}
	return tile.HasPip(*end)
}

// ValidMoves enumerates the legal (tile, side) pairs for a player. On an
// empty board every hand tile is a nominal left play. When both ends carry
// the same pip, right plays duplicate left plays and are suppressed.
func ValidMoves(g *Game, playerID string) []ValidMove {
	p := g.Player(playerID)
	if p == nil {
		return nil
	}

	if len(g.Board) == 0 {
		moves := make([]ValidMove, 0, len(p.Hand))
		for _, t := range p.Hand {
			moves = append(moves, ValidMove{Tile: t, Side: SideLeft})
		}
		return moves
	}

	symmetric := g.Ends.Left != nil && g.Ends.Right != nil && *g.Ends.Left == *g.Ends.Right
	var moves []ValidMove
	for _, t := range p.Hand {
		if canPlayOn(t, g.Ends.Left) {
			moves = append(moves, ValidMove{Tile: t, Side: SideLeft})
		}
		if canPlayOn(t, g.Ends.Right) && !symmetric {
			moves = append(moves, ValidMove{Tile: t, Side: SideRight})
		}
	}
	return moves
}

// HasValidMove reports whether the player can make any legal play.
func HasValidMove(g *Game, playerID string) bool {
	return len(ValidMoves(g, playerID)) > 0
}

// StartGame moves a game into the PICKING phase: the full set is shuffled
// onto the fixed 0..27 grid, hands are cleared and the picking timer starts.
func StartGame(g *Game, rng *rand.Rand, now time.Time) {
	tiles := FullSet()
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})

	g.PickingTiles = make(map[int]Tile, len(tiles))
	for i, t := range tiles {
		g.PickingTiles[i] = t
	}

	for _, p := range g.Players {
		p.Hand = nil
	}
	g.Board = nil
	g.Boneyard = nil
	g.Ends = BoardEnds{}
	g.Status = StatusPicking
	g.CurrentTurn = ""
	g.TurnStartedAt = time.Time{}
	g.PickingStartedAt = now
}

// startPlayingPhase transitions PICKING to PLAYING. Unclaimed grid tiles
// become the boneyard. starterID overrides the opening seat when it names a
// seated player (the previous round's winner opens later rounds); otherwise
// the highest-double rule applies.
func startPlayingPhase(g *Game, starterID string, now time.Time) {
	g.Boneyard = make([]Tile, 0, len(g.PickingTiles))
	for _, t := range g.PickingTiles {
		g.Boneyard = append(g.Boneyard, t)
	}
	g.PickingTiles = make(map[int]Tile)
	g.PickingStartedAt = time.Time{}

	if starterID == "" {
		starterID = g.NextStarter
	}
	g.NextStarter = ""
	if starterID != "" && g.Player(starterID) != nil {
		g.CurrentTurn = starterID
	} else {
		g.CurrentTurn = findStartingPlayer(g)
	}

	g.Status = StatusPlaying
	g.TurnStartedAt = now
}

// findStartingPlayer picks the seat holding the highest double, breaking ties
// toward the earlier seat. With no doubles anywhere, the seat holding the
// highest-total tile starts.
func findStartingPlayer(g *Game) string {
	bestID := ""
	bestDouble := -1
	for _, p := range g.Players {
		for _, t := range p.Hand {
			if t.IsDouble() && t.Left > bestDouble {
				bestDouble = t.Left
				bestID = p.ID
			}
		}
	}
	if bestID != "" {
		return bestID
	}

	bestTotal := -1
	for _, p := range g.Players {
		for _, t := range p.Hand {
			if t.Total() > bestTotal {
				bestTotal = t.Total()
				bestID = p.ID
			}
		}
	}
	return bestID
}

// PlayTile applies a move for the player. The tile is matched against the
// hand ignoring orientation and is flipped as needed so the abutting pip
// faces the chain. Ends, board and turn all advance; round termination is
// checked before returning.
func PlayTile(g *Game, playerID string, tile Tile, side Side, now time.Time) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	p := g.Player(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.HasTile(tile) {
		return ErrTileNotInHand
	}
	if !side.Valid() {
		return ErrInvalidSide
	}

	// Opening tile sets both ends as laid.
	if len(g.Board) == 0 {
		g.Board = append(g.Board, PlayedTile{Tile: tile, Position: 0})
		l, r := tile.Left, tile.Right
		g.Ends = BoardEnds{Left: &l, Right: &r}
		p.removeTile(tile)
		advanceTurn(g, now)
		CheckGameOver(g)
		return nil
	}

	position := len(g.Board)
	switch side {
	case SideLeft:
		if !canPlayOn(tile, g.Ends.Left) {
			return ErrTileDoesNotMatch
		}
		placed := tile
		if placed.Right != *g.Ends.Left {
			placed = placed.Flipped()
		}
		g.Board = append([]PlayedTile{{Tile: placed, Position: position}}, g.Board...)
		l := placed.Left
		g.Ends.Left = &l

	case SideRight:
		if !canPlayOn(tile, g.Ends.Right) {
			return ErrTileDoesNotMatch
		}
		placed := tile
		if placed.Left != *g.Ends.Right {
			placed = placed.Flipped()
		}
		g.Board = append(g.Board, PlayedTile{Tile: placed, Position: position})
		r := placed.Right
		g.Ends.Right = &r
	}

	p.removeTile(tile)
	advanceTurn(g, now)
	CheckGameOver(g)
	return nil
}

// PassTurn passes for the player. Passing is only legal when the player has
// no valid move.
func PassTurn(g *Game, playerID string, now time.Time) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	if HasValidMove(g, playerID) {
		return ErrHaveValidMoves
	}

	advanceTurn(g, now)
	CheckGameOver(g)
	return nil
}

// advanceTurn rotates the turn to the next seat and restarts the turn timer.
func advanceTurn(g *Game, now time.Time) {
	if g.CurrentTurn == "" || len(g.Players) == 0 {
		return
	}
	i := g.PlayerIndex(g.CurrentTurn)
	g.CurrentTurn = g.Players[(i+1)%len(g.Players)].ID
	g.TurnStartedAt = now
}

// CheckGameOver finishes the round when a hand empties (domino) or when no
// seat has a legal move (blocked, lowest pip total wins with seat-order
// tie-break). Returns true when the round ended.
func CheckGameOver(g *Game) bool {
	for _, p := range g.Players {
		if len(p.Hand) == 0 {
			g.Status = StatusFinished
			g.WinnerID = p.ID
			return true
		}
	}

	for _, p := range g.Players {
		if HasValidMove(g, p.ID) {
			return false
		}
	}

	g.Status = StatusFinished
	winner := g.Players[0]
	for _, p := range g.Players[1:] {
		if p.HandTotal() < winner.HandTotal() {
			winner = p
		}
	}
	g.WinnerID = winner.ID
	return true
}

// WasBlocked reports whether a finished round ended blocked rather than by
// domino: every seat still holds tiles.
func WasBlocked(g *Game) bool {
	for _, p := range g.Players {
		if len(p.Hand) == 0 {
			return false
		}
	}
	return true
}

// StartNewRound clears round state between match rounds. Scores and seat
// order are untouched; the match wrapper owns the round number.
func StartNewRound(g *Game) {
	g.Status = StatusWaiting
	g.Board = nil
	g.Boneyard = nil
	g.Ends = BoardEnds{}
	g.WinnerID = ""
	g.CurrentTurn = ""
	g.PickingTiles = make(map[int]Tile)
	g.PickingStartedAt = time.Time{}
	g.TurnStartedAt = time.Time{}
	for _, p := range g.Players {
		p.Hand = nil
	}
}
