package server

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunosmmm/barkak-domino/internal/game"
)

// RunLoops runs the three background sweeps until ctx is cancelled: stale
// game cleanup, picking timeouts and turn timeouts. Sweep errors are logged
// and never kill a loop.
func (s *Service) RunLoops(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.clock.TickerFunc(ctx, s.cfg.CleanupInterval, func() error {
			s.sweepCleanup()
			return nil
		}, "cleanup").Wait()
	})
	eg.Go(func() error {
		return s.clock.TickerFunc(ctx, s.cfg.PickingSweepPeriod, func() error {
			s.sweepPicking()
			return nil
		}, "picking").Wait()
	})
	eg.Go(func() error {
		return s.clock.TickerFunc(ctx, s.cfg.TurnSweepPeriod, func() error {
			s.sweepTurns()
			return nil
		}, "turns").Wait()
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sweepCleanup reaps stale games and closes their sockets.
func (s *Service) sweepCleanup() {
	for _, id := range s.registry.CleanupStale() {
		s.hub.CloseGame(id, CloseGameNotFound, "game removed")
	}
}

// sweepPicking force-fills under-hand human players in games whose picking
// timer expired.
func (s *Service) sweepPicking() {
	for _, g := range s.registry.ListActiveGames() {
		s.sweepPickingGame(g.ID)
	}
}

type autoAssignment struct {
	playerID  string
	positions []int
}

func (s *Service) sweepPickingGame(gameID string) {
	now := s.clock.Now()

	var (
		assigned   []autoAssignment
		nowPlaying bool
	)
	err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, rng *rand.Rand) error {
		if g.Status != game.StatusPicking || g.PickingTimeout <= 0 {
			return nil
		}
		if now.Sub(g.PickingStartedAt) <= time.Duration(g.PickingTimeout)*time.Second {
			return nil
		}

		// CPUs self-pace their claims; only humans get force-filled.
		for _, p := range g.Players {
			if p.IsCPU || len(p.Hand) >= game.HandSize {
				continue
			}
			positions := game.AutoAssignRemainingTiles(g, p.ID, rng, now)
			if len(positions) > 0 {
				assigned = append(assigned, autoAssignment{playerID: p.ID, positions: positions})
			}
		}
		if len(assigned) > 0 {
			g.Touch(now)
		}
		nowPlaying = g.Status == game.StatusPlaying
		return nil
	})
	if err != nil || len(assigned) == 0 {
		return
	}

	s.logger.Info("Picking timed out", "game", gameID, "players", len(assigned))
	for _, a := range assigned {
		s.hub.Broadcast(gameID, TilesAutoAssignedFrame{
			Type:      MessageTypeTilesAutoAssigned,
			PlayerID:  a.playerID,
			Positions: a.positions,
			Reason:    "timeout",
		})
	}

	if nowPlaying {
		s.announcePlaying(gameID)
		return
	}
	s.broadcastState(gameID)
	s.startCPUPicking(gameID)
}

// sweepTurns auto-plays for connected humans whose turn timer expired. CPU
// seats self-pace and disconnected players keep their turn until they return.
func (s *Service) sweepTurns() {
	for _, g := range s.registry.ListActiveGames() {
		s.sweepTurnGame(g.ID)
	}
}

func (s *Service) sweepTurnGame(gameID string) {
	now := s.clock.Now()

	var (
		playerID string
		move     game.ValidMove
		played   bool
		acted    bool
		finished bool
	)
	err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, rng *rand.Rand) error {
		if g.Status != game.StatusPlaying || g.TurnTimeout <= 0 {
			return nil
		}
		p := g.Player(g.CurrentTurn)
		if p == nil || p.IsCPU || !p.Connected {
			return nil
		}
		if now.Sub(g.TurnStartedAt) <= time.Duration(g.TurnTimeout)*time.Second {
			return nil
		}

		playerID = p.ID
		moves := game.ValidMoves(g, playerID)
		if len(moves) > 0 {
			move = moves[rng.IntN(len(moves))]
			if err := game.PlayTile(g, playerID, move.Tile, move.Side, now); err != nil {
				return err
			}
			played = true
		} else {
			if err := game.PassTurn(g, playerID, now); err != nil {
				return err
			}
		}
		g.Touch(now)
		acted = true
		finished = g.Status == game.StatusFinished
		return nil
	})
	if err != nil {
		s.logger.Error("Turn timeout sweep failed", "game", gameID, "player", playerID, "error", err)
		return
	}
	if !acted {
		return
	}

	s.logger.Info("Turn timed out", "game", gameID, "player", playerID, "auto_played", played)
	if played {
		s.hub.Broadcast(gameID, TilePlayedFrame{
			Type:       MessageTypeTilePlayed,
			PlayerID:   playerID,
			Domino:     move.Tile,
			Side:       move.Side,
			AutoPlayed: true,
		})
	} else {
		s.hub.Broadcast(gameID, TurnPassedFrame{
			Type:       MessageTypeTurnPassed,
			PlayerID:   playerID,
			AutoPassed: true,
		})
	}
	s.broadcastState(gameID)

	if finished {
		s.handleRoundEnd(gameID)
		return
	}
	s.maybeDriveCPUTurn(gameID)
}
