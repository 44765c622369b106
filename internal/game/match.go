package game

import "time"

// Team tags for 4-player games. Seats 0 and 2 form team A, seats 1 and 3
// team B.
const (
	TeamA = "team_a"
	TeamB = "team_b"
)

// AvatarPool is the fixed set of avatar ids sampled when a match's teams are
// finalized. Cosmetic only.
var AvatarPool = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 14, 15, 16, 17, 18, 20}

// RoundResult records the outcome of one completed round.
type RoundResult struct {
	RoundNumber   int            `json:"round_number"`
	WinnerID      string         `json:"winner_id"`
	WinnerTeam    string         `json:"winner_team,omitempty"`
	PointsAwarded int            `json:"points_awarded"`
	RemainingPips map[string]int `json:"remaining_pips"`
	WasBlocked    bool           `json:"was_blocked"`
}

// TeamScores is the cumulative ledger for a team game.
type TeamScores struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// Match wraps a game across rounds, accumulating scores toward a target.
// Match and Game reference each other by id only; the registry resolves both.
type Match struct {
	ID              string
	GameID          string
	CompletedRounds []RoundResult

	TeamA []string // player ids, seats 0 and 2
	TeamB []string // player ids, seats 1 and 3

	IsTeamGame       bool
	TeamScores       TeamScores
	IndividualScores map[string]int
	TargetScore      int

	// Seat info cached across rounds.
	PlayerNames     map[string]string
	PlayerPositions []string

	TeamAName string
	TeamBName string
	AvatarIDs []int

	CreatedAt    time.Time
	LastActivity time.Time
}

// NewMatch creates a match wrapper for the given game.
func NewMatch(id string, g *Game, targetScore int, now time.Time) *Match {
	m := &Match{
		ID:               id,
		GameID:           g.ID,
		IndividualScores: make(map[string]int),
		TargetScore:      targetScore,
		PlayerNames:      make(map[string]string),
		CreatedAt:        now,
		LastActivity:     now,
	}
	for _, p := range g.Players {
		m.PlayerNames[p.ID] = p.Name
		m.PlayerPositions = append(m.PlayerPositions, p.ID)
		m.IndividualScores[p.ID] = 0
	}
	return m
}

// Touch records activity on the match.
func (m *Match) Touch(now time.Time) {
	m.LastActivity = now
}

// CurrentScores returns the live score ledger keyed by team tag or player id.
func (m *Match) CurrentScores() map[string]int {
	if m.IsTeamGame {
		return map[string]int{TeamA: m.TeamScores.TeamA, TeamB: m.TeamScores.TeamB}
	}
	scores := make(map[string]int, len(m.IndividualScores))
	for pid, s := range m.IndividualScores {
		scores[pid] = s
	}
	return scores
}

// Winner returns the team tag or player id that has reached the target
// score, or empty when the match is still live.
func (m *Match) Winner() string {
	if m.IsTeamGame {
		if m.TeamScores.TeamA >= m.TargetScore {
			return TeamA
		}
		if m.TeamScores.TeamB >= m.TargetScore {
			return TeamB
		}
		return ""
	}
	for _, pid := range m.PlayerPositions {
		if m.IndividualScores[pid] >= m.TargetScore {
			return pid
		}
	}
	return ""
}

// TeamFor returns the team tag a player belongs to, or empty.
func (m *Match) TeamFor(playerID string) string {
	for _, id := range m.TeamA {
		if id == playerID {
			return TeamA
		}
	}
	for _, id := range m.TeamB {
		if id == playerID {
			return TeamB
		}
	}
	return ""
}
