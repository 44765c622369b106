package game

import "time"

// Status is the lifecycle state of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPicking  Status = "picking"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Variant tags the rule set a game was created with. Only block semantics are
// implemented; draw and all_fives are accepted as tags and play as block.
type Variant string

const (
	VariantBlock    Variant = "block"
	VariantDraw     Variant = "draw"
	VariantAllFives Variant = "all_fives"
)

// Valid reports whether v is a known variant tag.
func (v Variant) Valid() bool {
	switch v {
	case VariantBlock, VariantDraw, VariantAllFives:
		return true
	}
	return false
}

const (
	// HandSize is the number of tiles each player holds at the start of a round.
	HandSize = 6

	// DefaultTurnTimeout and DefaultPickingTimeout are the per-game timer
	// defaults in seconds. Zero disables the respective timer.
	DefaultTurnTimeout    = 60
	DefaultPickingTimeout = 45
)

// Game is the authoritative state of a single round in progress. All mutation
// happens under the owning registry's per-game lock.
type Game struct {
	ID          string
	Variant     Variant
	Status      Status
	Players     []*Player
	CurrentTurn string // player id, empty outside PLAYING
	Board       []PlayedTile
	Boneyard    []Tile
	Ends        BoardEnds
	MaxPlayers  int
	WinnerID    string
	RoundNumber int
	MatchID     string

	// NextStarter names the seat that opens the next round's playing phase.
	// Set between match rounds to the previous round's winner.
	NextStarter string

	// Picking phase: fixed grid position (0..27) to face-down tile. Entries
	// are deleted as tiles are claimed.
	PickingTiles map[int]Tile

	PickingStartedAt time.Time
	TurnStartedAt    time.Time
	PickingTimeout   int // seconds, 0 disables
	TurnTimeout      int // seconds, 0 disables

	CreatedAt    time.Time
	LastActivity time.Time
}

// NewGame creates an empty waiting game.
func NewGame(id string, variant Variant, maxPlayers int, now time.Time) *Game {
	return &Game{
		ID:             id,
		Variant:        variant,
		Status:         StatusWaiting,
		MaxPlayers:     maxPlayers,
		RoundNumber:    1,
		PickingTiles:   make(map[int]Tile),
		PickingTimeout: DefaultPickingTimeout,
		TurnTimeout:    DefaultTurnTimeout,
		CreatedAt:      now,
		LastActivity:   now,
	}
}

// Touch records activity on the game for stale-game reaping.
func (g *Game) Touch(now time.Time) {
	g.LastActivity = now
}

// Player returns the seated player with the given id, or nil.
func (g *Game) Player(playerID string) *Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// PlayerIndex returns the seat index of the player, or -1.
func (g *Game) PlayerIndex(playerID string) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Creator returns the first seated player, who owns creator-only actions.
func (g *Game) Creator() *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[0]
}

// IsCreator reports whether the given player occupies the creator seat.
func (g *Game) IsCreator(playerID string) bool {
	c := g.Creator()
	return c != nil && c.ID == playerID
}

// HasConnectedHumans reports whether any human seat is currently connected.
func (g *Game) HasConnectedHumans() bool {
	for _, p := range g.Players {
		if p.Connected && !p.IsCPU {
			return true
		}
	}
	return false
}

// IsCPUTurn reports whether the seat holding the current turn is a CPU.
func (g *Game) IsCPUTurn() bool {
	if g.CurrentTurn == "" {
		return false
	}
	p := g.Player(g.CurrentTurn)
	return p != nil && p.IsCPU
}
