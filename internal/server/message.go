package server

import (
	"github.com/brunosmmm/barkak-domino/internal/game"
)

// MessageType identifies a frame on the wire.
type MessageType string

// Client to server frames.
const (
	MessageTypePlayTile      MessageType = "play_tile"
	MessageTypePassTurn      MessageType = "pass_turn"
	MessageTypeStartGame     MessageType = "start_game"
	MessageTypeAddCPU        MessageType = "add_cpu"
	MessageTypeClaimTile     MessageType = "claim_tile"
	MessageTypeGetValidMoves MessageType = "get_valid_moves"
	MessageTypeReaction      MessageType = "reaction"
	MessageTypeNextRound     MessageType = "next_round"
)

// Server to client frames.
const (
	MessageTypeGameState          MessageType = "game_state"
	MessageTypeError              MessageType = "error"
	MessageTypePlayerConnected    MessageType = "player_connected"
	MessageTypePlayerDisconnected MessageType = "player_disconnected"
	MessageTypePlayerJoined       MessageType = "player_joined"
	MessageTypeCPUAdded           MessageType = "cpu_added"
	MessageTypeGameStarted        MessageType = "game_started"
	MessageTypeTilePlayed         MessageType = "tile_played"
	MessageTypeTurnPassed         MessageType = "turn_passed"
	MessageTypeTileClaimed        MessageType = "tile_claimed"
	MessageTypeTilesAutoAssigned  MessageType = "tiles_auto_assigned"
	MessageTypeValidMoves         MessageType = "valid_moves"
	MessageTypeReactionEvent      MessageType = "reaction"
	MessageTypeRoundStarted       MessageType = "round_started"
	MessageTypeRoundOver          MessageType = "round_over"
	MessageTypeMatchOver          MessageType = "match_over"
	MessageTypeGameOver           MessageType = "game_over"
)

func (mt MessageType) String() string {
	return string(mt)
}

// ClientFrame is the decoded form of any inbound frame. Fields beyond Type
// are populated only for the frame types that carry them.
type ClientFrame struct {
	Type      MessageType `json:"type"`
	Domino    *game.Tile  `json:"domino,omitempty"`
	Side      string      `json:"side,omitempty"`
	TileIndex *int        `json:"tile_index,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
}

// Outbound frames. Each carries its own type tag so frames marshal directly
// onto the socket.

type ErrorFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func newErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: MessageTypeError, Message: message}
}

type PlayerConnectedFrame struct {
	Type       MessageType `json:"type"`
	PlayerID   string      `json:"player_id"`
	PlayerName string      `json:"player_name"`
}

type PlayerDisconnectedFrame struct {
	Type     MessageType `json:"type"`
	PlayerID string      `json:"player_id"`
}

type PlayerJoinedFrame struct {
	Type        MessageType `json:"type"`
	PlayerID    string      `json:"player_id"`
	PlayerName  string      `json:"player_name"`
	PlayerCount int         `json:"player_count"`
}

type CPUAddedFrame struct {
	Type        MessageType `json:"type"`
	PlayerCount int         `json:"player_count"`
}

type GameStartedFrame struct {
	Type MessageType `json:"type"`
}

type TilePlayedFrame struct {
	Type       MessageType `json:"type"`
	PlayerID   string      `json:"player_id"`
	Domino     game.Tile   `json:"domino"`
	Side       game.Side   `json:"side"`
	AutoPlayed bool        `json:"auto_played,omitempty"`
}

type TurnPassedFrame struct {
	Type       MessageType `json:"type"`
	PlayerID   string      `json:"player_id"`
	AutoPassed bool        `json:"auto_passed,omitempty"`
}

type TileClaimedFrame struct {
	Type      MessageType `json:"type"`
	PlayerID  string      `json:"player_id"`
	TileIndex int         `json:"tile_index"`
}

type TilesAutoAssignedFrame struct {
	Type      MessageType `json:"type"`
	PlayerID  string      `json:"player_id"`
	Positions []int       `json:"positions"`
	Reason    string      `json:"reason"`
}

type ValidMovesFrame struct {
	Type  MessageType      `json:"type"`
	Moves []game.ValidMove `json:"moves"`
}

type ReactionFrame struct {
	Type       MessageType `json:"type"`
	PlayerID   string      `json:"player_id"`
	PlayerName string      `json:"player_name"`
	Emoji      string      `json:"emoji"`
}

type RoundStartedFrame struct {
	Type        MessageType `json:"type"`
	RoundNumber int         `json:"round_number"`
}

type RoundOverFrame struct {
	Type          MessageType    `json:"type"`
	RoundNumber   int            `json:"round_number"`
	WinnerID      string         `json:"winner_id"`
	WinnerName    string         `json:"winner_name"`
	WinnerTeam    string         `json:"winner_team,omitempty"`
	PointsAwarded int            `json:"points_awarded"`
	RemainingPips map[string]int `json:"remaining_pips"`
	WasBlocked    bool           `json:"was_blocked"`
	Scores        map[string]int `json:"scores"`
	MatchWinner   string         `json:"match_winner,omitempty"`
	IsTeamGame    bool           `json:"is_team_game"`
}

type MatchOverFrame struct {
	Type        MessageType    `json:"type"`
	Winner      string         `json:"winner"`
	IsTeamGame  bool           `json:"is_team_game"`
	FinalScores map[string]int `json:"final_scores"`
	TotalRounds int            `json:"total_rounds"`
}

type GameOverFrame struct {
	Type       MessageType `json:"type"`
	WinnerID   string      `json:"winner_id"`
	WinnerName string      `json:"winner_name"`
}

type GameStateFrame struct {
	Type  MessageType `json:"type"`
	State PlayerView  `json:"state"`
}
