package game

import (
	rand "math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PrimateSpecies is the name pool for CPU seats and team names. CPU creation
// samples a name not already seated in the game.
var PrimateSpecies = []string{
	"Mandrill", "Capuchin", "Tamarin", "Marmoset", "Macaque",
	"Baboon", "Gibbon", "Siamang", "Orangutan", "Gorilla",
	"Chimpanzee", "Bonobo", "Howler", "Spider Monkey", "Squirrel Monkey",
	"Colobus", "Langur", "Proboscis", "Vervet", "Patas",
	"Gelada", "Drill", "Uakari", "Saki", "Titi",
	"Night Monkey", "Tarsier", "Loris", "Galago", "Potto",
	"Aye-Aye", "Sifaka", "Indri", "Ring-Tailed Lemur", "Mouse Lemur",
	"Snub-Nosed Monkey", "Guenon", "Mangabey", "Talapoin", "Allen's Swamp Monkey",
	"De Brazza's Monkey", "Diana Monkey", "Mona Monkey", "Wolf's Guenon", "Lesula",
	"Barbary Macaque", "Lion-Tailed Macaque", "Japanese Macaque", "Rhesus", "Crab-Eating Macaque",
	"Golden Lion Tamarin", "Emperor Tamarin", "Pygmy Marmoset", "Woolly Monkey", "Muriqui",
}

// NewCPUPlayer creates a CPU seat with a species name not already used in the
// game. When the pool is somehow exhausted the full pool is sampled anyway.
func NewCPUPlayer(existingNames []string, rng *rand.Rand) *Player {
	used := make(map[string]bool, len(existingNames))
	for _, n := range existingNames {
		used[n] = true
	}

	available := make([]string, 0, len(PrimateSpecies))
	for _, n := range PrimateSpecies {
		if !used[n] {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		available = PrimateSpecies
	}

	return &Player{
		ID:        uuid.NewString(),
		Name:      available[rng.IntN(len(available))],
		Connected: true,
		IsCPU:     true,
	}
}

// CPUMove picks the move a CPU seat plays, or ok=false when it must pass.
// Moves are scored 10 per double plus the tile's pip total plus one per other
// hand tile sharing a pip, so doubles and heavy tiles go first while
// connected tiles keep options open. Ties break uniformly at random via a
// small score perturbation.
func CPUMove(g *Game, playerID string, rng *rand.Rand) (ValidMove, bool) {
	moves := ValidMoves(g, playerID)
	if len(moves) == 0 {
		return ValidMove{}, false
	}
	p := g.Player(playerID)
	if p == nil {
		return ValidMove{}, false
	}

	type scored struct {
		move  ValidMove
		score float64
	}
	ranked := make([]scored, 0, len(moves))
	for _, m := range moves {
		score := 0.0
		if m.Tile.IsDouble() {
			score += 10
		}
		score += float64(m.Tile.Total())
		for _, other := range p.Hand {
			if other.Equals(m.Tile) {
				continue
			}
			if other.HasPip(m.Tile.Left) || other.HasPip(m.Tile.Right) {
				score++
			}
		}
		ranked = append(ranked, scored{move: m, score: score + rng.Float64()})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked[0].move, true
}

// ExecuteCPUTurn plays the CPU's chosen move, or passes when no move exists.
// Returns the move made, or ok=false for a pass.
func ExecuteCPUTurn(g *Game, playerID string, rng *rand.Rand, now time.Time) (ValidMove, bool, error) {
	move, ok := CPUMove(g, playerID, rng)
	if !ok {
		return ValidMove{}, false, PassTurn(g, playerID, now)
	}
	return move, true, PlayTile(g, playerID, move.Tile, move.Side, now)
}
