package server

import (
	"errors"
	rand "math/rand/v2"
	"time"

	"github.com/brunosmmm/barkak-domino/internal/game"
	"github.com/brunosmmm/barkak-domino/internal/randutil"
)

// pace draws a random pacing delay for CPU actions.
func (s *Service) pace(min, max time.Duration) time.Duration {
	s.paceMu.Lock()
	defer s.paceMu.Unlock()
	return randutil.DurationBetween(s.paceRng, min, max)
}

// sleep blocks for d on the injected clock. Returns false when the service
// shut down before the delay elapsed.
func (s *Service) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}

	fired := make(chan struct{})
	timer := s.clock.AfterFunc(d, func() {
		close(fired)
	})
	defer timer.Stop()

	select {
	case <-fired:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// maybeDriveCPUTurn spawns the CPU turn driver when a CPU seat holds the
// turn and no driver is already running for the game.
func (s *Service) maybeDriveCPUTurn(gameID string) {
	isCPU := false
	err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		isCPU = g.Status == game.StatusPlaying && g.IsCPUTurn()
		return nil
	})
	if err != nil || !isCPU {
		return
	}
	if !s.registry.TryAcquireCPUTurn(gameID) {
		return
	}

	s.wg.Add(1)
	go s.runCPUTurn(gameID)
}

// runCPUTurn drives consecutive CPU turns for one game, pausing a humanlike
// delay before each move. It exits as soon as the turn belongs to a human,
// the round ends, or the game state moves out from under it.
func (s *Service) runCPUTurn(gameID string) {
	defer s.wg.Done()
	defer s.registry.ReleaseCPUTurn(gameID)

	for {
		var cpuID string
		err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
			if g.Status != game.StatusPlaying || !g.IsCPUTurn() {
				return errSkip
			}
			cpuID = g.CurrentTurn
			return nil
		})
		if err != nil {
			return
		}

		if !s.sleep(s.pace(s.cfg.CPUTurnDelayMin, s.cfg.CPUTurnDelayMax)) {
			return
		}

		var (
			move     game.ValidMove
			played   bool
			finished bool
		)
		err = s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, rng *rand.Rand) error {
			// The turn may have moved on during the wait.
			if g.Status != game.StatusPlaying || g.CurrentTurn != cpuID {
				return errSkip
			}
			mv, ok, err := game.ExecuteCPUTurn(g, cpuID, rng, s.clock.Now())
			if err != nil {
				return err
			}
			g.Touch(s.clock.Now())
			move, played = mv, ok
			finished = g.Status == game.StatusFinished
			return nil
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			s.logger.Error("CPU turn failed", "game", gameID, "cpu", cpuID, "error", err)
			return
		}

		if played {
			s.hub.Broadcast(gameID, TilePlayedFrame{
				Type:     MessageTypeTilePlayed,
				PlayerID: cpuID,
				Domino:   move.Tile,
				Side:     move.Side,
			})
		} else {
			s.hub.Broadcast(gameID, TurnPassedFrame{
				Type:     MessageTypeTurnPassed,
				PlayerID: cpuID,
			})
		}
		s.broadcastState(gameID)

		if finished {
			s.handleRoundEnd(gameID)
			return
		}
	}
}

// startCPUPicking spawns the picking worker when the game is in its picking
// phase with CPU seats still under-hand.
func (s *Service) startCPUPicking(gameID string) {
	need := false
	err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		if g.Status != game.StatusPicking {
			return nil
		}
		for _, p := range g.Players {
			if p.IsCPU && len(p.Hand) < game.HandSize {
				need = true
				break
			}
		}
		return nil
	})
	if err != nil || !need {
		return
	}
	if !s.registry.TryAcquireCPUPicking(gameID) {
		return
	}

	s.wg.Add(1)
	go s.runCPUPicking(gameID)
}

// pickNeedyCPU selects, uniformly at random, a CPU seat whose hand is still
// short. Returns "" when no CPU needs tiles. The caller holds the game lock.
func pickNeedyCPU(g *game.Game, rng *rand.Rand) string {
	var needy []string
	for _, p := range g.Players {
		if p.IsCPU && len(p.Hand) < game.HandSize {
			needy = append(needy, p.ID)
		}
	}
	if len(needy) == 0 {
		return ""
	}
	return needy[rng.IntN(len(needy))]
}

// runCPUPicking claims grid tiles for CPU seats one at a time with a short
// pause between claims, until every CPU hand is full or the picking phase
// ends.
func (s *Service) runCPUPicking(gameID string) {
	defer s.wg.Done()
	defer s.registry.ReleaseCPUPicking(gameID)

	for {
		if !s.sleep(s.pace(s.cfg.CPUPickDelayMin, s.cfg.CPUPickDelayMax)) {
			return
		}

		var (
			cpuID      string
			pos        int
			nowPlaying bool
		)
		err := s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, rng *rand.Rand) error {
			if g.Status != game.StatusPicking {
				return errSkip
			}
			cpuID = pickNeedyCPU(g, rng)
			if cpuID == "" {
				return errSkip
			}
			claimed, err := game.CPUClaimTile(g, cpuID, rng, s.clock.Now())
			if err != nil {
				return err
			}
			g.Touch(s.clock.Now())
			pos = claimed
			nowPlaying = g.Status == game.StatusPlaying
			return nil
		})
		if errors.Is(err, errSkip) {
			return
		}
		if err != nil {
			s.logger.Error("CPU pick failed", "game", gameID, "cpu", cpuID, "error", err)
			return
		}

		s.hub.Broadcast(gameID, TileClaimedFrame{
			Type:      MessageTypeTileClaimed,
			PlayerID:  cpuID,
			TileIndex: pos,
		})

		if nowPlaying {
			s.announcePlaying(gameID)
			return
		}
		s.broadcastState(gameID)
	}
}
