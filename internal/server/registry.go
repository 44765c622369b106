package server

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/brunosmmm/barkak-domino/internal/game"
	"github.com/brunosmmm/barkak-domino/internal/gameid"
	"github.com/brunosmmm/barkak-domino/internal/randutil"
)

// Stale-game reaping thresholds, enforced by CleanupStale.
const (
	staleInactivity   = 60 * time.Minute
	staleAbandonedAge = 2 * time.Minute
	staleFinishedAge  = 5 * time.Minute
)

// entry pairs a game with its match, its seeded rand source and its lock. All
// game and match mutation happens under entry.mu.
type entry struct {
	mu    sync.Mutex
	game  *game.Game
	match *game.Match
	rng   *rand.Rand

	// Single-flight sentinels: at most one worker drives a game's CPU picks
	// and at most one drives its CPU turns at a time.
	cpuPicking bool
	cpuTurn    bool
}

// Registry owns every live game and match. It hands out per-game locked
// access and runs the lifecycle operations the HTTP and socket layers share.
type Registry struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	seedMu   sync.Mutex
	rootSeed int64
	nextSeed int64
}

// NewRegistry creates an empty registry. Every per-game rand source derives
// from rootSeed, so a fixed seed reproduces whole matches.
func NewRegistry(cfg Config, clock quartz.Clock, logger *log.Logger, rootSeed int64) *Registry {
	return &Registry{
		cfg:      cfg,
		clock:    clock,
		logger:   logger.WithPrefix("registry"),
		entries:  make(map[string]*entry),
		rootSeed: rootSeed,
	}
}

// newRNG derives the next per-game rand source from the root seed.
func (r *Registry) newRNG() *rand.Rand {
	r.seedMu.Lock()
	defer r.seedMu.Unlock()
	r.nextSeed++
	return randutil.New(r.rootSeed + r.nextSeed)
}

// CreateGameParams are the create-game request knobs after validation.
type CreateGameParams struct {
	PlayerName  string
	MaxPlayers  int
	Variant     game.Variant
	CPUPlayers  int
	TargetScore int
}

// CreatedGame reports the outcome of CreateGame.
type CreatedGame struct {
	GameID   string
	MatchID  string
	PlayerID string
	Players  int
	Started  bool
}

// CreateGame creates a game with the creator seated, adds any requested CPU
// seats and wraps the game in a match. A game that fills up immediately
// starts its picking phase.
func (r *Registry) CreateGame(p CreateGameParams) (*CreatedGame, error) {
	if p.PlayerName == "" {
		return nil, fmt.Errorf("player name is required")
	}
	if p.MaxPlayers < 2 || p.MaxPlayers > 4 {
		return nil, fmt.Errorf("max players must be between 2 and 4, got %d", p.MaxPlayers)
	}
	if p.CPUPlayers < 0 || p.CPUPlayers >= p.MaxPlayers {
		return nil, fmt.Errorf("cpu players must be between 0 and %d, got %d", p.MaxPlayers-1, p.CPUPlayers)
	}
	if !p.Variant.Valid() {
		return nil, fmt.Errorf("unknown variant: %s", p.Variant)
	}
	if p.TargetScore == 0 {
		p.TargetScore = r.cfg.DefaultTargetScore
	}
	if p.TargetScore < 50 || p.TargetScore > 500 {
		return nil, fmt.Errorf("target score must be between 50 and 500, got %d", p.TargetScore)
	}

	now := r.clock.Now()
	rng := r.newRNG()

	r.mu.Lock()
	defer r.mu.Unlock()

	id := gameid.New()
	for r.entries[id] != nil {
		id = gameid.New()
	}

	g := game.NewGame(id, p.Variant, p.MaxPlayers, now)
	g.TurnTimeout = r.cfg.TurnTimeout
	g.PickingTimeout = r.cfg.PickingTimeout

	creator := game.NewPlayer(p.PlayerName)
	g.Players = append(g.Players, creator)

	for i := 0; i < p.CPUPlayers && len(g.Players) < g.MaxPlayers; i++ {
		cpu := game.NewCPUPlayer(seatedNames(g), rng)
		g.Players = append(g.Players, cpu)
	}

	matchID := gameid.New()
	m := game.NewMatch(matchID, g, p.TargetScore, now)
	g.MatchID = matchID

	started := false
	if len(g.Players) == g.MaxPlayers {
		r.beginMatchPlay(g, m, rng, now)
		started = true
	}

	r.entries[id] = &entry{game: g, match: m, rng: rng}
	r.logger.Info("Game created",
		"game", id, "creator", creator.Name, "max_players", p.MaxPlayers,
		"cpus", p.CPUPlayers, "variant", p.Variant, "target", p.TargetScore)

	return &CreatedGame{
		GameID:   id,
		MatchID:  matchID,
		PlayerID: creator.ID,
		Players:  len(g.Players),
		Started:  started,
	}, nil
}

// JoinGame seats a new human player in a waiting game. The returned flag
// reports whether the join filled the table and started the picking phase.
func (r *Registry) JoinGame(gameID, playerName string) (*game.Player, bool, error) {
	if playerName == "" {
		return nil, false, fmt.Errorf("player name is required")
	}

	e, err := r.entry(gameID)
	if err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.game
	if g.Status != game.StatusWaiting {
		return nil, false, game.ErrGameStarted
	}
	if len(g.Players) >= g.MaxPlayers {
		return nil, false, game.ErrGameFull
	}
	for _, p := range g.Players {
		if p.Name == playerName {
			return nil, false, game.ErrNameTaken
		}
	}

	p := game.NewPlayer(playerName)
	g.Players = append(g.Players, p)
	now := r.clock.Now()
	g.Touch(now)
	e.match.PlayerNames[p.ID] = p.Name
	e.match.PlayerPositions = append(e.match.PlayerPositions, p.ID)
	e.match.IndividualScores[p.ID] = 0
	e.match.Touch(now)

	started := false
	if len(g.Players) == g.MaxPlayers {
		r.beginMatchPlay(g, e.match, e.rng, now)
		started = true
	}

	r.logger.Info("Player joined", "game", gameID, "player", playerName, "seats", len(g.Players))
	return p, started, nil
}

// AddCPUPlayer seats a CPU in a waiting game. Creator-only. The returned flag
// reports whether the table filled and play started.
func (r *Registry) AddCPUPlayer(gameID, requesterID string) (*game.Player, bool, error) {
	e, err := r.entry(gameID)
	if err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.game
	if g.Status != game.StatusWaiting {
		return nil, false, game.ErrGameStarted
	}
	if !g.IsCreator(requesterID) {
		return nil, false, game.ErrNotCreator
	}
	if len(g.Players) >= g.MaxPlayers {
		return nil, false, game.ErrGameFull
	}

	cpu := game.NewCPUPlayer(seatedNames(g), e.rng)
	g.Players = append(g.Players, cpu)
	now := r.clock.Now()
	g.Touch(now)
	e.match.PlayerNames[cpu.ID] = cpu.Name
	e.match.PlayerPositions = append(e.match.PlayerPositions, cpu.ID)
	e.match.IndividualScores[cpu.ID] = 0
	e.match.Touch(now)

	started := false
	if len(g.Players) == g.MaxPlayers {
		r.beginMatchPlay(g, e.match, e.rng, now)
		started = true
	}

	r.logger.Info("CPU added", "game", gameID, "cpu", cpu.Name, "seats", len(g.Players))
	return cpu, started, nil
}

// StartGame starts a waiting game before it is full. Creator-only; at least
// two seats must be taken.
func (r *Registry) StartGame(gameID, requesterID string) error {
	e, err := r.entry(gameID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.game
	if g.Status != game.StatusWaiting {
		return game.ErrGameStarted
	}
	if !g.IsCreator(requesterID) {
		return game.ErrNotCreator
	}
	if len(g.Players) < 2 {
		return game.ErrNeedMorePlayers
	}

	r.beginMatchPlay(g, e.match, e.rng, r.clock.Now())
	r.logger.Info("Game started early", "game", gameID, "seats", len(g.Players))
	return nil
}

// beginMatchPlay finalizes the match roster and moves the game into its
// picking phase. Caller holds the relevant locks.
func (r *Registry) beginMatchPlay(g *game.Game, m *game.Match, rng *rand.Rand, now time.Time) {
	finalizeMatchTeams(g, m, rng)
	game.StartGame(g, rng, now)
	g.Touch(now)
	m.Touch(now)
}

// finalizeMatchTeams fixes the match roster once play begins. Four-player
// games become team games: seats 0 and 2 versus seats 1 and 3, with team
// names drawn from the species pool and an avatar per seat.
func finalizeMatchTeams(g *game.Game, m *game.Match, rng *rand.Rand) {
	m.PlayerNames = make(map[string]string, len(g.Players))
	m.PlayerPositions = m.PlayerPositions[:0]
	for _, p := range g.Players {
		m.PlayerNames[p.ID] = p.Name
		m.PlayerPositions = append(m.PlayerPositions, p.ID)
		if _, ok := m.IndividualScores[p.ID]; !ok {
			m.IndividualScores[p.ID] = 0
		}
	}

	m.AvatarIDs = m.AvatarIDs[:0]
	pool := append([]int{}, game.AvatarPool...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for i := range g.Players {
		m.AvatarIDs = append(m.AvatarIDs, pool[i%len(pool)])
	}

	if len(g.Players) != 4 {
		m.IsTeamGame = false
		m.TeamA, m.TeamB = nil, nil
		return
	}

	m.IsTeamGame = true
	m.TeamA = []string{g.Players[0].ID, g.Players[2].ID}
	m.TeamB = []string{g.Players[1].ID, g.Players[3].ID}

	var names []string
	used := make(map[string]bool)
	for _, p := range g.Players {
		used[p.Name] = true
	}
	for _, n := range game.PrimateSpecies {
		if !used[n] {
			names = append(names, n)
		}
	}
	if len(names) < 2 {
		names = game.PrimateSpecies
	}
	i := rng.IntN(len(names))
	j := rng.IntN(len(names) - 1)
	if j >= i {
		j++
	}
	m.TeamAName = "Team " + names[i]
	m.TeamBName = "Team " + names[j]
}

// CompleteRound settles a finished round into the match ledger: scores the
// round, appends the result and marks the winner as the next round's opener.
// Caller holds the game lock. Returns the recorded result.
func CompleteRound(g *game.Game, m *game.Match, now time.Time) (game.RoundResult, error) {
	if g.Status != game.StatusFinished {
		return game.RoundResult{}, game.ErrRoundNotFinished
	}

	result := game.RoundResult{
		RoundNumber: g.RoundNumber,
		WinnerID:    g.WinnerID,
		WasBlocked:  game.WasBlocked(g),
	}

	if m.IsTeamGame {
		team, points, pips := game.TeamRoundPoints(g, m.TeamA, m.TeamB)
		result.WinnerTeam = team
		result.PointsAwarded = points
		result.RemainingPips = pips
		switch team {
		case game.TeamA:
			m.TeamScores.TeamA += points
		case game.TeamB:
			m.TeamScores.TeamB += points
		}
	} else {
		winnerID, points, pips := game.RoundPoints(g)
		result.PointsAwarded = points
		result.RemainingPips = pips
		m.IndividualScores[winnerID] += points
	}

	m.CompletedRounds = append(m.CompletedRounds, result)
	g.NextStarter = g.WinnerID
	g.Touch(now)
	m.Touch(now)
	return result, nil
}

// StartNextRound resets the game for the next match round and opens its
// picking phase. Caller holds the game lock.
func StartNextRound(g *game.Game, m *game.Match, rng *rand.Rand, now time.Time) error {
	if g.Status != game.StatusFinished {
		return game.ErrRoundNotFinished
	}
	if m.Winner() != "" {
		return game.ErrMatchOver
	}

	game.StartNewRound(g)
	g.RoundNumber = len(m.CompletedRounds) + 1
	game.StartGame(g, rng, now)
	g.Touch(now)
	m.Touch(now)
	return nil
}

// entry looks up a game's entry.
func (r *Registry) entry(gameID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	return e, nil
}

// Has reports whether a game exists.
func (r *Registry) Has(gameID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[gameID] != nil
}

// WithGame runs fn with the game's lock held. All socket-driven mutation goes
// through here.
func (r *Registry) WithGame(gameID string, fn func(g *game.Game, m *game.Match, rng *rand.Rand) error) error {
	e, err := r.entry(gameID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.game, e.match, e.rng)
}

// TryAcquireCPUPicking claims the CPU picking worker slot for a game. Returns
// false when a worker already holds it or the game is gone.
func (r *Registry) TryAcquireCPUPicking(gameID string) bool {
	e, err := r.entry(gameID)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cpuPicking {
		return false
	}
	e.cpuPicking = true
	return true
}

// ReleaseCPUPicking releases the CPU picking worker slot.
func (r *Registry) ReleaseCPUPicking(gameID string) {
	e, err := r.entry(gameID)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cpuPicking = false
}

// TryAcquireCPUTurn claims the CPU turn driver slot for a game.
func (r *Registry) TryAcquireCPUTurn(gameID string) bool {
	e, err := r.entry(gameID)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cpuTurn {
		return false
	}
	e.cpuTurn = true
	return true
}

// ReleaseCPUTurn releases the CPU turn driver slot.
func (r *Registry) ReleaseCPUTurn(gameID string) {
	e, err := r.entry(gameID)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cpuTurn = false
}

// GameIDs returns the ids of every live game.
func (r *Registry) GameIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Connect marks a player connected, validating that both game and player
// exist. Reconnecting the seat that holds the turn restarts the turn timer so
// the returning player gets a full window.
func (r *Registry) Connect(gameID, playerID string) (*game.Player, error) {
	e, err := r.entry(gameID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.game.Player(playerID)
	if p == nil {
		return nil, game.ErrPlayerNotFound
	}

	now := r.clock.Now()
	p.Connected = true
	e.game.Touch(now)
	if e.game.Status == game.StatusPlaying && e.game.CurrentTurn == playerID {
		e.game.TurnStartedAt = now
	}
	return p, nil
}

// Disconnect marks a player disconnected. The seat itself is never freed, so
// the player can reconnect by id at any time; abandoned games are reclaimed by
// CleanupStale instead.
func (r *Registry) Disconnect(gameID, playerID string) {
	e, err := r.entry(gameID)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p := e.game.Player(playerID); p != nil {
		p.Connected = false
		e.game.Touch(r.clock.Now())
	}
}

// remove deletes a game from the registry.
func (r *Registry) remove(gameID, reason string) {
	r.mu.Lock()
	_, ok := r.entries[gameID]
	delete(r.entries, gameID)
	r.mu.Unlock()
	if ok {
		r.logger.Info("Game removed", "game", gameID, "reason", reason)
	}
}

// GameSummary is a lobby listing entry.
type GameSummary struct {
	ID          string       `json:"id"`
	Variant     game.Variant `json:"variant"`
	Status      game.Status  `json:"status"`
	PlayerCount int          `json:"player_count"`
	MaxPlayers  int          `json:"max_players"`
	PlayerNames []string     `json:"player_names"`
	RoundNumber int          `json:"round_number"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ListOpenGames returns waiting games with free seats, for the lobby.
func (r *Registry) ListOpenGames() []GameSummary {
	return r.list(func(g *game.Game) bool {
		return g.Status == game.StatusWaiting && len(g.Players) < g.MaxPlayers
	})
}

// ListActiveGames returns games with a round in progress, in picking or play.
func (r *Registry) ListActiveGames() []GameSummary {
	return r.list(func(g *game.Game) bool {
		return g.Status == game.StatusPicking || g.Status == game.StatusPlaying
	})
}

// ListGames returns every live game.
func (r *Registry) ListGames() []GameSummary {
	return r.list(func(g *game.Game) bool { return true })
}

func (r *Registry) list(keep func(*game.Game) bool) []GameSummary {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var out []GameSummary
	for _, e := range entries {
		e.mu.Lock()
		g := e.game
		if keep(g) {
			s := GameSummary{
				ID:          g.ID,
				Variant:     g.Variant,
				Status:      g.Status,
				PlayerCount: len(g.Players),
				MaxPlayers:  g.MaxPlayers,
				RoundNumber: g.RoundNumber,
				CreatedAt:   g.CreatedAt,
			}
			for _, p := range g.Players {
				s.PlayerNames = append(s.PlayerNames, p.Name)
			}
			out = append(out, s)
		}
		e.mu.Unlock()
	}
	return out
}

// Stats is an aggregate snapshot of the registry for the stats endpoint.
type Stats struct {
	TotalGames    int `json:"total_games"`
	WaitingGames  int `json:"waiting_games"`
	PickingGames  int `json:"picking_games"`
	PlayingGames  int `json:"playing_games"`
	FinishedGames int `json:"finished_games"`
	TotalPlayers  int `json:"total_players"`
	CPUPlayers    int `json:"cpu_players"`
}

// Snapshot computes aggregate stats across all live games.
func (r *Registry) Snapshot() Stats {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var s Stats
	for _, e := range entries {
		e.mu.Lock()
		s.TotalGames++
		switch e.game.Status {
		case game.StatusWaiting:
			s.WaitingGames++
		case game.StatusPicking:
			s.PickingGames++
		case game.StatusPlaying:
			s.PlayingGames++
		case game.StatusFinished:
			s.FinishedGames++
		}
		for _, p := range e.game.Players {
			s.TotalPlayers++
			if p.IsCPU {
				s.CPUPlayers++
			}
		}
		e.mu.Unlock()
	}
	return s
}

// CleanupStale removes games nobody will come back to: anything inactive for
// an hour, waiting games abandoned by all humans for two minutes, finished
// games idle for five. Returns the removed game ids so the hub can close
// their sockets.
func (r *Registry) CleanupStale() []string {
	now := r.clock.Now()

	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var removed []string
	for _, id := range ids {
		e, err := r.entry(id)
		if err != nil {
			continue
		}

		e.mu.Lock()
		g := e.game
		reason := ""
		switch {
		case now.Sub(g.LastActivity) > staleInactivity:
			reason = "inactive"
		case g.Status == game.StatusWaiting && !g.HasConnectedHumans() &&
			now.Sub(g.LastActivity) > staleAbandonedAge:
			reason = "abandoned"
		case g.Status == game.StatusFinished && now.Sub(g.LastActivity) > staleFinishedAge:
			reason = "finished"
		}
		e.mu.Unlock()

		if reason != "" {
			r.remove(id, reason)
			removed = append(removed, id)
		}
	}
	return removed
}

// seatedNames collects the names already in use at the table.
func seatedNames(g *game.Game) []string {
	names := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		names = append(names, p.Name)
	}
	return names
}
