package server

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Hub indexes live connections by game and player. One socket per seat: a
// second connection for the same seat displaces the first.
type Hub struct {
	logger *log.Logger
	mu     sync.RWMutex
	conns  map[string]map[string]*Connection // game id -> player id -> conn
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger: logger.WithPrefix("hub"),
		conns:  make(map[string]map[string]*Connection),
	}
}

// Register indexes a connection, returning any connection it displaced.
func (h *Hub) Register(c *Connection) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := h.conns[c.GameID()]
	if players == nil {
		players = make(map[string]*Connection)
		h.conns[c.GameID()] = players
	}
	old := players[c.PlayerID()]
	players[c.PlayerID()] = c
	return old
}

// Unregister removes a connection, unless the seat has already been taken
// over by a newer socket. Reports whether the connection still owned its
// seat; a displaced socket must not tear down the seat's state.
func (h *Hub) Unregister(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := h.conns[c.GameID()]
	if players == nil || players[c.PlayerID()] != c {
		return false
	}
	delete(players, c.PlayerID())
	if len(players) == 0 {
		delete(h.conns, c.GameID())
	}
	return true
}

// SendTo delivers a frame to one seat if it is connected.
func (h *Hub) SendTo(gameID, playerID string, frame any) {
	h.mu.RLock()
	c := h.conns[gameID][playerID]
	h.mu.RUnlock()

	if c == nil {
		return
	}
	if err := c.SendFrame(frame); err != nil {
		h.logger.Debug("Dropped frame", "game", gameID, "player", playerID, "error", err)
	}
}

// Broadcast delivers a frame to every connected seat in a game, minus any
// excluded players. Per-connection send failures are swallowed so the rest
// of the table still hears the event.
func (h *Hub) Broadcast(gameID string, frame any, exclude ...string) {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns[gameID]))
	for pid, c := range h.conns[gameID] {
		skip := false
		for _, ex := range exclude {
			if pid == ex {
				skip = true
				break
			}
		}
		if !skip {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.SendFrame(frame); err != nil {
			h.logger.Debug("Dropped frame", "game", gameID, "player", c.PlayerID(), "error", err)
		}
	}
}

// Connections returns the live connections for a game.
func (h *Hub) Connections(gameID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Connection, 0, len(h.conns[gameID]))
	for _, c := range h.conns[gameID] {
		out = append(out, c)
	}
	return out
}

// CloseGame closes every socket in a game with the given close code. Used
// when the registry reaps a game.
func (h *Hub) CloseGame(gameID string, code int, reason string) {
	h.mu.Lock()
	players := h.conns[gameID]
	delete(h.conns, gameID)
	h.mu.Unlock()

	for _, c := range players {
		c.CloseWithCode(code, reason)
	}
}

// CloseAll closes every socket. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.conns
	h.conns = make(map[string]map[string]*Connection)
	h.mu.Unlock()

	for _, players := range all {
		for _, c := range players {
			_ = c.Close()
		}
	}
}
