package server

import (
	"io"
	rand "math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/brunosmmm/barkak-domino/internal/game"
	"github.com/brunosmmm/barkak-domino/internal/randutil"
)

// testRig bundles a registry, hub and service over a mock clock. CPU pacing
// keeps its production delays, so any CPU worker a test happens to spawn
// parks on a mock timer and stays inert unless the test advances time.
type testRig struct {
	cfg      Config
	clock    *quartz.Mock
	registry *Registry
	hub      *Hub
	service  *Service
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	logger := log.NewWithOptions(io.Discard, log.Options{})
	clock := quartz.NewMock(t)
	cfg := DefaultConfig()

	registry := NewRegistry(cfg, clock, logger, 42)
	hub := NewHub(logger)
	service := NewService(registry, hub, cfg, clock, logger, randutil.New(42))
	t.Cleanup(service.Stop)

	return &testRig{
		cfg:      cfg,
		clock:    clock,
		registry: registry,
		hub:      hub,
		service:  service,
	}
}

// createGame creates a game with the given seat layout and returns the
// creation result.
func (r *testRig) createGame(t *testing.T, maxPlayers, cpus int) *CreatedGame {
	t.Helper()
	created, err := r.registry.CreateGame(CreateGameParams{
		PlayerName:  "Alice",
		MaxPlayers:  maxPlayers,
		Variant:     game.VariantBlock,
		CPUPlayers:  cpus,
		TargetScore: 100,
	})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return created
}

// newConn builds a connection for a seat without a live socket. Frames pushed
// to it land in its buffered send queue; tests read them straight off.
func (r *testRig) newConn(gameID, playerID string) *Connection {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return NewConnection(nil, gameID, playerID, logger, r.service)
}

// claimCPUTiles claims n grid tiles for every CPU seat, bypassing the paced
// picking worker.
func (r *testRig) claimCPUTiles(t *testing.T, gameID string, n int) {
	t.Helper()
	err := r.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, rng *rand.Rand) error {
		for _, p := range g.Players {
			if !p.IsCPU {
				continue
			}
			for i := 0; i < n && len(p.Hand) < game.HandSize; i++ {
				if _, err := game.CPUClaimTile(g, p.ID, rng, r.clock.Now()); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("claimCPUTiles: %v", err)
	}
}
