package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Application close codes.
const (
	// CloseSuperseded is sent to a socket displaced by a newer connection
	// for the same seat.
	CloseSuperseded = 4000

	// CloseGameNotFound is sent when the socket names a game or player that
	// does not exist (or no longer exists).
	CloseGameNotFound = 4004
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection is one player's socket. A connection is bound to its game and
// player for its whole lifetime; reconnecting means opening a new socket.
type Connection struct {
	conn     *websocket.Conn
	send     chan any
	gameID   string
	playerID string
	logger   *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	service *Service
}

// NewConnection wraps an upgraded socket bound to a game and player.
func NewConnection(conn *websocket.Conn, gameID, playerID string, logger *log.Logger, service *Service) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan any, 256),
		gameID:   gameID,
		playerID: playerID,
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		service:  service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// CloseWithCode sends a close frame with the given code before closing.
func (c *Connection) CloseWithCode(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	_ = c.Close()
}

// GameID returns the game this socket is bound to.
func (c *Connection) GameID() string { return c.gameID }

// PlayerID returns the player this socket is bound to.
func (c *Connection) PlayerID() string { return c.playerID }

// SendFrame queues a frame for delivery. A full send buffer closes the
// connection rather than blocking the game loop.
func (c *Connection) SendFrame(frame any) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown.
			c.logger.Debug("Attempted to send frame on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection",
			"game", c.gameID, "player", c.playerID)
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// readPump handles incoming frames from the client
func (c *Connection) readPump() {
	defer func() {
		c.service.HandleDisconnect(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var frame ClientFrame
		err := c.conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err, "game", c.gameID, "player", c.playerID)
			}
			return
		}

		c.service.HandleFrame(c, frame)
	}
}

// writePump handles outgoing frames to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Error("Failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
