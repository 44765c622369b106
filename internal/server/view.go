package server

import (
	"math"
	"slices"
	"time"

	"github.com/brunosmmm/barkak-domino/internal/game"
)

// PlayerView is the sanitized per-player snapshot of a game. Only the
// addressee's own hand appears; other seats expose tile counts only.
type PlayerView struct {
	ID            string            `json:"id"`
	Variant       game.Variant      `json:"variant"`
	Status        game.Status       `json:"status"`
	CurrentTurn   string            `json:"current_turn"`
	YourPlayerID  string            `json:"your_player_id"`
	YourHand      []game.Tile       `json:"your_hand"`
	Board         []game.PlayedTile `json:"board"`
	Ends          game.BoardEnds    `json:"ends"`
	Players       []SeatView        `json:"players"`
	WinnerID      string            `json:"winner_id"`
	BoneyardCount int               `json:"boneyard_count"`
	RoundNumber   int               `json:"round_number"`
	Match         *MatchState       `json:"match"`
	TurnTimer     *TimerInfo        `json:"turn_timer"`
	PickingTimer  *TimerInfo        `json:"picking_timer"`

	// Grid positions still holding a face-down tile; only meaningful in
	// PICKING and never reveals the tiles themselves.
	AvailableTilePositions []int `json:"available_tile_positions"`
}

// SeatView is one roster entry in a snapshot.
type SeatView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TileCount int    `json:"tile_count"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	IsYou     bool   `json:"is_you"`
	IsCPU     bool   `json:"is_cpu"`
	Position  int    `json:"position"`
}

// TimerInfo carries a running timer's remainder for client countdowns.
type TimerInfo struct {
	Timeout   int     `json:"timeout"`
	Remaining float64 `json:"remaining"`
	StartedAt string  `json:"started_at"`
}

// MatchState is the match embed in a snapshot.
type MatchState struct {
	ID              string             `json:"id"`
	IsTeamGame      bool               `json:"is_team_game"`
	TargetScore     int                `json:"target_score"`
	CurrentRound    int                `json:"current_round"`
	Scores          map[string]int     `json:"scores"`
	TeamA           []string           `json:"team_a"`
	TeamB           []string           `json:"team_b"`
	TeamAName       string             `json:"team_a_name"`
	TeamBName       string             `json:"team_b_name"`
	PlayerPositions []string           `json:"player_positions"`
	PlayerNames     map[string]string  `json:"player_names"`
	AvatarIDs       []int              `json:"avatar_ids"`
	CompletedRounds []game.RoundResult `json:"completed_rounds"`
	MatchWinner     string             `json:"match_winner"`
}

// buildPlayerView assembles the snapshot of g addressed to playerID. The
// caller holds the game lock.
func buildPlayerView(g *game.Game, m *game.Match, playerID string, now time.Time) PlayerView {
	view := PlayerView{
		ID:            g.ID,
		Variant:       g.Variant,
		Status:        g.Status,
		CurrentTurn:   g.CurrentTurn,
		YourPlayerID:  playerID,
		YourHand:      []game.Tile{},
		Board:         append([]game.PlayedTile{}, g.Board...),
		Ends:          g.Ends,
		WinnerID:      g.WinnerID,
		BoneyardCount: len(g.Boneyard),
		RoundNumber:   g.RoundNumber,
	}

	if p := g.Player(playerID); p != nil {
		view.YourHand = append(view.YourHand, p.Hand...)
	}

	view.Players = make([]SeatView, 0, len(g.Players))
	for i, p := range g.Players {
		view.Players = append(view.Players, SeatView{
			ID:        p.ID,
			Name:      p.Name,
			TileCount: len(p.Hand),
			Score:     p.Score,
			Connected: p.Connected,
			IsYou:     p.ID == playerID,
			IsCPU:     p.IsCPU,
			Position:  i,
		})
	}

	if m != nil {
		view.Match = buildMatchState(m)
	}

	if g.Status == game.StatusPlaying && g.TurnTimeout > 0 && !g.TurnStartedAt.IsZero() {
		view.TurnTimer = timerInfo(g.TurnTimeout, g.TurnStartedAt, now)
	}
	if g.Status == game.StatusPicking && g.PickingTimeout > 0 && !g.PickingStartedAt.IsZero() {
		view.PickingTimer = timerInfo(g.PickingTimeout, g.PickingStartedAt, now)
	}

	view.AvailableTilePositions = []int{}
	if g.Status == game.StatusPicking {
		for pos := range g.PickingTiles {
			view.AvailableTilePositions = append(view.AvailableTilePositions, pos)
		}
		slices.Sort(view.AvailableTilePositions)
	}

	return view
}

// buildMatchState assembles the match embed. The caller holds the game lock,
// which also serializes match access.
func buildMatchState(m *game.Match) *MatchState {
	names := make(map[string]string, len(m.PlayerNames))
	for id, name := range m.PlayerNames {
		names[id] = name
	}

	return &MatchState{
		ID:              m.ID,
		IsTeamGame:      m.IsTeamGame,
		TargetScore:     m.TargetScore,
		CurrentRound:    len(m.CompletedRounds) + 1,
		Scores:          m.CurrentScores(),
		TeamA:           append([]string{}, m.TeamA...),
		TeamB:           append([]string{}, m.TeamB...),
		TeamAName:       m.TeamAName,
		TeamBName:       m.TeamBName,
		PlayerPositions: append([]string{}, m.PlayerPositions...),
		PlayerNames:     names,
		AvatarIDs:       append([]int{}, m.AvatarIDs...),
		CompletedRounds: append([]game.RoundResult{}, m.CompletedRounds...),
		MatchWinner:     m.Winner(),
	}
}

// timerInfo computes the remainder of a running timer at one-decisecond
// precision.
func timerInfo(timeoutSeconds int, startedAt, now time.Time) *TimerInfo {
	elapsed := now.Sub(startedAt).Seconds()
	remaining := math.Max(0, float64(timeoutSeconds)-elapsed)
	return &TimerInfo{
		Timeout:   timeoutSeconds,
		Remaining: math.Round(remaining*10) / 10,
		StartedAt: startedAt.UTC().Format(time.RFC3339),
	}
}
