package server

import (
	"context"
	"encoding/json"
	"errors"
	rand "math/rand/v2"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/brunosmmm/barkak-domino/internal/game"
)

// Server is the HTTP front: the REST lobby surface, the websocket endpoint
// and optional static file serving.
type Server struct {
	cfg      *FileConfig
	upgrader websocket.Upgrader
	registry *Registry
	hub      *Hub
	service  *Service
	logger   *log.Logger
	httpSrv  *http.Server
}

// NewServer wires the HTTP layer over an assembled registry, hub and service.
func NewServer(cfg *FileConfig, registry *Registry, hub *Hub, service *Service, logger *log.Logger) *Server {
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry: registry,
		hub:      hub,
		service:  service,
		logger:   logger.WithPrefix("server"),
	}
}

// Handler builds the routing table: the REST lobby surface, the websocket
// endpoint and optional static file serving.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/{game_id}/{player_id}", s.handleWebSocket)
	if s.cfg.Server.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.Server.StaticDir)))
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.GetServerAddress()
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	s.logger.Info("Listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		s.hub.CloseAll()
		s.service.Stop()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleWebSocket upgrades a socket bound to (game, player). Unknown games
// and players are rejected after the upgrade with close code 4004 so the
// client can tell "gone" from "unreachable".
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("game_id")
	playerID := r.PathValue("player_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := NewConnection(conn, gameID, playerID, s.logger, s.service)
	if !s.service.HandleConnect(c) {
		c.CloseWithCode(CloseGameNotFound, "game or player not found")
		return
	}
	c.Start()
}

// CreateGameRequest is the POST /api/games body.
type CreateGameRequest struct {
	PlayerName  string `json:"player_name"`
	Variant     string `json:"variant"`
	MaxPlayers  int    `json:"max_players"`
	CPUPlayers  int    `json:"cpu_players"`
	TargetScore int    `json:"target_score"`
}

// CreateGameResponse is the POST /api/games reply.
type CreateGameResponse struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	MatchID    string `json:"match_id"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Variant == "" {
		req.Variant = string(game.VariantBlock)
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 4
	}

	created, err := s.registry.CreateGame(CreateGameParams{
		PlayerName:  req.PlayerName,
		MaxPlayers:  req.MaxPlayers,
		Variant:     game.Variant(req.Variant),
		CPUPlayers:  req.CPUPlayers,
		TargetScore: req.TargetScore,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, CreateGameResponse{
		GameID:     created.GameID,
		PlayerID:   created.PlayerID,
		PlayerName: req.PlayerName,
		MatchID:    created.MatchID,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := s.registry.ListOpenGames()
	if games == nil {
		games = []GameSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, g := range s.registry.ListGames() {
		if g.ID == id {
			s.writeJSON(w, http.StatusOK, g)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, game.ErrGameNotFound.Error())
}

// JoinGameRequest is the POST /api/games/{id}/join body.
type JoinGameRequest struct {
	PlayerName string `json:"player_name"`
}

// JoinGameResponse is the join reply.
type JoinGameResponse struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, started, err := s.registry.JoinGame(id, req.PlayerName)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, game.ErrGameNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.hub.Broadcast(id, PlayerJoinedFrame{
		Type:        MessageTypePlayerJoined,
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		PlayerCount: s.playerCount(id),
	})
	if started {
		s.hub.Broadcast(id, GameStartedFrame{Type: MessageTypeGameStarted})
		s.service.startCPUPicking(id)
	}
	s.service.broadcastState(id)

	s.writeJSON(w, http.StatusOK, JoinGameResponse{
		GameID:     id,
		PlayerID:   p.ID,
		PlayerName: p.Name,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) playerCount(gameID string) int {
	count := 0
	_ = s.registry.WithGame(gameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		count = len(g.Players)
		return nil
	})
	return count
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
