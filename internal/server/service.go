package server

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/brunosmmm/barkak-domino/internal/game"
)

// errSkip aborts a WithGame callback without surfacing an error to the
// client. Used when a worker wakes up and finds its action no longer applies.
var errSkip = errors.New("skip")

// defaultReactionEmoji stands in when a reaction frame carries no emoji.
const defaultReactionEmoji = "\U0001F44D"

// Service wires the registry, the connection hub and the CPU drivers
// together. Every socket frame and every timer-driven action flows through
// here so that event broadcasts and state snapshots stay consistent.
type Service struct {
	registry *Registry
	hub      *Hub
	cfg      Config
	clock    quartz.Clock
	logger   *log.Logger

	// paceRng draws CPU pacing delays and timeout auto-plays. Separate from
	// the per-game sources so pacing does not perturb gameplay sequences.
	paceMu  sync.Mutex
	paceRng *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the game service.
func NewService(registry *Registry, hub *Hub, cfg Config, clock quartz.Clock, logger *log.Logger, paceRng *rand.Rand) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry: registry,
		hub:      hub,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.WithPrefix("service"),
		paceRng:  paceRng,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Stop cancels all CPU drivers and waits for them to exit.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// HandleConnect finishes socket setup for a seat: marks it connected, sends
// the initial snapshot and wakes any CPU work the game is waiting on.
// Returns false if the game or player does not exist; the caller closes the
// socket with CloseGameNotFound.
func (s *Service) HandleConnect(c *Connection) bool {
	p, err := s.registry.Connect(c.GameID(), c.PlayerID())
	if err != nil {
		s.logger.Warn("Rejected socket", "game", c.GameID(), "player", c.PlayerID(), "error", err)
		return false
	}

	if old := s.hub.Register(c); old != nil {
		old.CloseWithCode(CloseSuperseded, "superseded by a new connection")
	}

	s.logger.Info("Player connected", "game", c.GameID(), "player", p.Name)
	s.hub.Broadcast(c.GameID(), PlayerConnectedFrame{
		Type:       MessageTypePlayerConnected,
		PlayerID:   p.ID,
		PlayerName: p.Name,
	})
	s.broadcastState(c.GameID())
	s.wakeGame(c.GameID())
	return true
}

// HandleDisconnect tears down a closed socket: the seat is marked
// disconnected and the table is told. The seat stays reserved so the player
// can reconnect by id. A socket displaced by a newer connection for the same
// seat leaves the seat's state to its successor.
func (s *Service) HandleDisconnect(c *Connection) {
	if !s.hub.Unregister(c) {
		return
	}

	s.registry.Disconnect(c.GameID(), c.PlayerID())

	s.logger.Info("Player disconnected", "game", c.GameID(), "player", c.PlayerID())
	s.hub.Broadcast(c.GameID(), PlayerDisconnectedFrame{
		Type:     MessageTypePlayerDisconnected,
		PlayerID: c.PlayerID(),
	})
	s.broadcastState(c.GameID())
}

// HandleFrame dispatches one inbound frame. Any inbound frame counts as
// activity for the game, whether or not the action itself is accepted.
func (s *Service) HandleFrame(c *Connection, frame ClientFrame) {
	s.logger.Debug("Frame", "type", frame.Type, "game", c.GameID(), "player", c.PlayerID())

	_ = s.registry.WithGame(c.GameID(), func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		g.Touch(s.clock.Now())
		return nil
	})

	switch frame.Type {
	case MessageTypePlayTile:
		s.handlePlayTile(c, frame)
	case MessageTypePassTurn:
		s.handlePassTurn(c)
	case MessageTypeStartGame:
		s.handleStartGame(c)
	case MessageTypeAddCPU:
		s.handleAddCPU(c)
	case MessageTypeClaimTile:
		s.handleClaimTile(c, frame)
	case MessageTypeGetValidMoves:
		s.handleGetValidMoves(c)
	case MessageTypeReaction:
		s.handleReaction(c, frame)
	case MessageTypeNextRound:
		s.handleNextRound(c)
	default:
		s.sendError(c, "Unknown message type: "+frame.Type.String())
	}
}

func (s *Service) handlePlayTile(c *Connection, frame ClientFrame) {
	if frame.Domino == nil {
		s.sendError(c, "Missing domino")
		return
	}
	side := game.Side(frame.Side)
	if !side.Valid() {
		s.sendError(c, game.ErrInvalidSide.Error())
		return
	}

	var finished bool
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, m *game.Match, _ *rand.Rand) error {
		if err := game.PlayTile(g, c.PlayerID(), *frame.Domino, side, s.clock.Now()); err != nil {
			return err
		}
		finished = g.Status == game.StatusFinished
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	s.hub.Broadcast(c.GameID(), TilePlayedFrame{
		Type:     MessageTypeTilePlayed,
		PlayerID: c.PlayerID(),
		Domino:   *frame.Domino,
		Side:     side,
	})
	s.broadcastState(c.GameID())

	if finished {
		s.handleRoundEnd(c.GameID())
		return
	}
	s.maybeDriveCPUTurn(c.GameID())
}

func (s *Service) handlePassTurn(c *Connection) {
	var finished bool
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, m *game.Match, _ *rand.Rand) error {
		if err := game.PassTurn(g, c.PlayerID(), s.clock.Now()); err != nil {
			return err
		}
		finished = g.Status == game.StatusFinished
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	s.hub.Broadcast(c.GameID(), TurnPassedFrame{
		Type:     MessageTypeTurnPassed,
		PlayerID: c.PlayerID(),
	})
	s.broadcastState(c.GameID())

	if finished {
		s.handleRoundEnd(c.GameID())
		return
	}
	s.maybeDriveCPUTurn(c.GameID())
}

func (s *Service) handleStartGame(c *Connection) {
	if err := s.registry.StartGame(c.GameID(), c.PlayerID()); err != nil {
		s.sendError(c, err.Error())
		return
	}
	s.announceGameStarted(c.GameID())
}

func (s *Service) handleAddCPU(c *Connection) {
	cpu, started, err := s.registry.AddCPUPlayer(c.GameID(), c.PlayerID())
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	var seats int
	_ = s.registry.WithGame(c.GameID(), func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		seats = len(g.Players)
		return nil
	})

	s.hub.Broadcast(c.GameID(), CPUAddedFrame{Type: MessageTypeCPUAdded, PlayerCount: seats})
	s.logger.Info("CPU seated", "game", c.GameID(), "cpu", cpu.Name)

	if started {
		s.announceGameStarted(c.GameID())
		return
	}
	s.broadcastState(c.GameID())
}

func (s *Service) handleClaimTile(c *Connection, frame ClientFrame) {
	if frame.TileIndex == nil {
		s.sendError(c, "Missing tile_index")
		return
	}

	var nowPlaying bool
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		if err := game.ClaimTile(g, c.PlayerID(), *frame.TileIndex, s.clock.Now()); err != nil {
			return err
		}
		nowPlaying = g.Status == game.StatusPlaying
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	s.hub.Broadcast(c.GameID(), TileClaimedFrame{
		Type:      MessageTypeTileClaimed,
		PlayerID:  c.PlayerID(),
		TileIndex: *frame.TileIndex,
	})

	if nowPlaying {
		s.announcePlaying(c.GameID())
		return
	}
	s.broadcastState(c.GameID())
	s.startCPUPicking(c.GameID())
}

func (s *Service) handleGetValidMoves(c *Connection) {
	moves := []game.ValidMove{}
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		if g.Status == game.StatusPlaying {
			moves = append(moves, game.ValidMoves(g, c.PlayerID())...)
		}
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}
	s.hub.SendTo(c.GameID(), c.PlayerID(), ValidMovesFrame{Type: MessageTypeValidMoves, Moves: moves})
}

func (s *Service) handleReaction(c *Connection, frame ClientFrame) {
	emoji := frame.Emoji
	if emoji == "" {
		emoji = defaultReactionEmoji
	}

	var name string
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		p := g.Player(c.PlayerID())
		if p == nil {
			return game.ErrPlayerNotFound
		}
		name = p.Name
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	s.hub.Broadcast(c.GameID(), ReactionFrame{
		Type:       MessageTypeReactionEvent,
		PlayerID:   c.PlayerID(),
		PlayerName: name,
		Emoji:      emoji,
	})
}

func (s *Service) handleNextRound(c *Connection) {
	var roundNumber int
	err := s.registry.WithGame(c.GameID(), func(g *game.Game, m *game.Match, rng *rand.Rand) error {
		if !g.IsCreator(c.PlayerID()) {
			return game.ErrNotCreator
		}
		if m == nil {
			return game.ErrNoMatch
		}
		if err := StartNextRound(g, m, rng, s.clock.Now()); err != nil {
			return err
		}
		roundNumber = g.RoundNumber
		return nil
	})
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	s.hub.Broadcast(c.GameID(), RoundStartedFrame{Type: MessageTypeRoundStarted, RoundNumber: roundNumber})
	s.broadcastState(c.GameID())
	s.startCPUPicking(c.GameID())
}

// announceGameStarted broadcasts the WAITING to PICKING transition.
func (s *Service) announceGameStarted(gameID string) {
	s.hub.Broadcast(gameID, GameStartedFrame{Type: MessageTypeGameStarted})
	s.broadcastState(gameID)
	s.startCPUPicking(gameID)
}

// announcePlaying broadcasts the PICKING to PLAYING transition and wakes the
// CPU turn driver if a CPU opens.
func (s *Service) announcePlaying(gameID string) {
	s.hub.Broadcast(gameID, GameStartedFrame{Type: MessageTypeGameStarted})
	s.broadcastState(gameID)
	s.maybeDriveCPUTurn(gameID)
}

// handleRoundEnd settles a finished round: the match ledger is updated and
// round_over (plus match_over when the target falls) goes out to the table.
func (s *Service) handleRoundEnd(gameID string) {
	var (
		roundOver RoundOverFrame
		matchOver *MatchOverFrame
		gameOver  *GameOverFrame
	)
	err := s.registry.WithGame(gameID, func(g *game.Game, m *game.Match, _ *rand.Rand) error {
		if m == nil {
			winnerName := ""
			if w := g.Player(g.WinnerID); w != nil {
				winnerName = w.Name
			}
			gameOver = &GameOverFrame{Type: MessageTypeGameOver, WinnerID: g.WinnerID, WinnerName: winnerName}
			return nil
		}

		result, err := CompleteRound(g, m, s.clock.Now())
		if err != nil {
			return err
		}

		roundOver = RoundOverFrame{
			Type:          MessageTypeRoundOver,
			RoundNumber:   result.RoundNumber,
			WinnerID:      result.WinnerID,
			WinnerName:    m.PlayerNames[result.WinnerID],
			WinnerTeam:    result.WinnerTeam,
			PointsAwarded: result.PointsAwarded,
			RemainingPips: result.RemainingPips,
			WasBlocked:    result.WasBlocked,
			Scores:        m.CurrentScores(),
			MatchWinner:   m.Winner(),
			IsTeamGame:    m.IsTeamGame,
		}
		if w := m.Winner(); w != "" {
			matchOver = &MatchOverFrame{
				Type:        MessageTypeMatchOver,
				Winner:      w,
				IsTeamGame:  m.IsTeamGame,
				FinalScores: m.CurrentScores(),
				TotalRounds: len(m.CompletedRounds),
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to settle round", "game", gameID, "error", err)
		return
	}

	if gameOver != nil {
		s.hub.Broadcast(gameID, *gameOver)
		s.broadcastState(gameID)
		return
	}

	s.hub.Broadcast(gameID, roundOver)
	s.broadcastState(gameID)
	if matchOver != nil {
		s.logger.Info("Match over", "game", gameID, "winner", matchOver.Winner, "rounds", matchOver.TotalRounds)
		s.hub.Broadcast(gameID, *matchOver)
	}
}

// broadcastState sends each connected seat its own view of the game.
func (s *Service) broadcastState(gameID string) {
	conns := s.hub.Connections(gameID)
	if len(conns) == 0 {
		return
	}

	now := s.clock.Now()
	frames := make(map[string]GameStateFrame, len(conns))
	err := s.registry.WithGame(gameID, func(g *game.Game, m *game.Match, _ *rand.Rand) error {
		for _, c := range conns {
			frames[c.PlayerID()] = GameStateFrame{
				Type:  MessageTypeGameState,
				State: buildPlayerView(g, m, c.PlayerID(), now),
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	for _, c := range conns {
		if f, ok := frames[c.PlayerID()]; ok {
			_ = c.SendFrame(f)
		}
	}
}

// sendError sends an error frame to the originator only.
func (s *Service) sendError(c *Connection, message string) {
	_ = c.SendFrame(newErrorFrame(message))
}

// wakeGame restarts whatever CPU work the game is waiting on. Called when a
// player connects so a table never stalls on a driver that died with its
// audience.
func (s *Service) wakeGame(gameID string) {
	var status game.Status
	err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		status = g.Status
		return nil
	})
	if err != nil {
		return
	}

	switch status {
	case game.StatusPicking:
		s.startCPUPicking(gameID)
	case game.StatusPlaying:
		s.maybeDriveCPUTurn(gameID)
	}
}
