package server

import (
	"bytes"
	"encoding/json"
	"io"
	rand "math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunosmmm/barkak-domino/internal/game"
	"github.com/brunosmmm/barkak-domino/internal/gameid"
)

func newHTTPRig(t *testing.T) (*testRig, *httptest.Server) {
	t.Helper()
	rig := newTestRig(t)
	srv := NewServer(DefaultFileConfig(), rig.registry, rig.hub, rig.service,
		log.NewWithOptions(io.Discard, log.Options{}))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return rig, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRESTLobbyFlow(t *testing.T) {
	_, ts := newHTTPRig(t)

	resp := postJSON(t, ts.URL+"/api/games", CreateGameRequest{PlayerName: "Alice", MaxPlayers: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created CreateGameResponse
	decodeBody(t, resp, &created)
	require.NoError(t, gameid.Validate(created.GameID))
	require.NotEmpty(t, created.PlayerID)

	resp, err := http.Get(ts.URL + "/api/games")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lobby struct {
		Games []GameSummary `json:"games"`
	}
	decodeBody(t, resp, &lobby)
	require.Len(t, lobby.Games, 1)
	assert.Equal(t, created.GameID, lobby.Games[0].ID)

	resp, err = http.Get(ts.URL + "/api/games/" + created.GameID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary GameSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, 1, summary.PlayerCount)

	resp, err = http.Get(ts.URL + "/api/games/deadbeef")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/games/"+created.GameID+"/join", JoinGameRequest{PlayerName: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined JoinGameResponse
	decodeBody(t, resp, &joined)
	assert.NotEmpty(t, joined.PlayerID)

	// The second seat filled the table; the lobby is empty and late joins
	// bounce.
	resp, err = http.Get(ts.URL + "/api/games")
	require.NoError(t, err)
	decodeBody(t, resp, &lobby)
	assert.Empty(t, lobby.Games)

	resp = postJSON(t, ts.URL+"/api/games/"+created.GameID+"/join", JoinGameRequest{PlayerName: "Carol"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/games/00000000/join", JoinGameRequest{PlayerName: "Carol"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	var stats Stats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 1, stats.PickingGames)
	assert.Equal(t, 2, stats.TotalPlayers)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateGameEndpointRejectsBadRequests(t *testing.T) {
	_, ts := newHTTPRig(t)

	resp, err := http.Post(ts.URL+"/api/games", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/games", CreateGameRequest{PlayerName: "Alice", MaxPlayers: 9})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server, gameID, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + gameID + "/" + playerID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) (string, []byte) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var probe struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(data, &probe))
	return probe.Type, data
}

func sendFrame(t *testing.T, ws *websocket.Conn, frame any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(frame))
}

func TestWebSocketGameFlow(t *testing.T) {
	rig, ts := newHTTPRig(t)
	created := rig.createGame(t, 2, 1)

	ws := dialWS(t, ts, created.GameID, created.PlayerID)

	typ, data := readFrame(t, ws)
	require.Equal(t, "player_connected", typ)
	var connected PlayerConnectedFrame
	require.NoError(t, json.Unmarshal(data, &connected))
	assert.Equal(t, created.PlayerID, connected.PlayerID)
	assert.Equal(t, "Alice", connected.PlayerName)

	typ, data = readFrame(t, ws)
	require.Equal(t, "game_state", typ)
	var state GameStateFrame
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, created.PlayerID, state.State.YourPlayerID)
	require.Len(t, state.State.AvailableTilePositions, 28)
	require.NotNil(t, state.State.PickingTimer)

	// Claim a face-down tile from the grid.
	pos := state.State.AvailableTilePositions[0]
	sendFrame(t, ws, map[string]any{"type": "claim_tile", "tile_index": pos})

	typ, data = readFrame(t, ws)
	require.Equal(t, "tile_claimed", typ)
	var claimed TileClaimedFrame
	require.NoError(t, json.Unmarshal(data, &claimed))
	assert.Equal(t, pos, claimed.TileIndex)
	assert.Equal(t, created.PlayerID, claimed.PlayerID)

	typ, data = readFrame(t, ws)
	require.Equal(t, "game_state", typ)
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Len(t, state.State.YourHand, 1)
	assert.NotContains(t, state.State.AvailableTilePositions, pos)

	// Reactions fan out to the table with the sender's name attached.
	sendFrame(t, ws, map[string]any{"type": "reaction", "emoji": "\U0001F525"})
	typ, data = readFrame(t, ws)
	require.Equal(t, "reaction", typ)
	var reaction ReactionFrame
	require.NoError(t, json.Unmarshal(data, &reaction))
	assert.Equal(t, "Alice", reaction.PlayerName)
	assert.Equal(t, "\U0001F525", reaction.Emoji)

	// Malformed requests earn an error frame, not a dropped socket.
	sendFrame(t, ws, map[string]any{"type": "claim_tile"})
	typ, data = readFrame(t, ws)
	require.Equal(t, "error", typ)
	var errFrame ErrorFrame
	require.NoError(t, json.Unmarshal(data, &errFrame))
	assert.Equal(t, "Missing tile_index", errFrame.Message)

	sendFrame(t, ws, map[string]any{"type": "shout"})
	typ, data = readFrame(t, ws)
	require.Equal(t, "error", typ)
	require.NoError(t, json.Unmarshal(data, &errFrame))
	assert.Equal(t, "Unknown message type: shout", errFrame.Message)
}

func TestWebSocketRejectsUnknownGame(t *testing.T) {
	_, ts := newHTTPRig(t)

	ws := dialWS(t, ts, "00000000", "nobody")
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseGameNotFound), "got %v", err)
}

func TestWebSocketDuplicateSeatSuperseded(t *testing.T) {
	rig, ts := newHTTPRig(t)
	created := rig.createGame(t, 2, 1)

	first := dialWS(t, ts, created.GameID, created.PlayerID)
	typ, _ := readFrame(t, first)
	require.Equal(t, "player_connected", typ)
	typ, _ = readFrame(t, first)
	require.Equal(t, "game_state", typ)

	second := dialWS(t, ts, created.GameID, created.PlayerID)
	typ, _ = readFrame(t, second)
	require.Equal(t, "player_connected", typ)
	typ, _ = readFrame(t, second)
	require.Equal(t, "game_state", typ)

	// The older socket is closed with the superseded code; the newer one
	// keeps the seat.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseSuperseded), "got %v", err)

	// Give the displaced socket's teardown a moment to run, then check it
	// left the seat alone.
	time.Sleep(50 * time.Millisecond)
	err = rig.registry.WithGame(created.GameID, func(g *game.Game, _ *game.Match, _ *rand.Rand) error {
		assert.True(t, g.Player(created.PlayerID).Connected,
			"displaced socket must not mark the seat disconnected")
		return nil
	})
	require.NoError(t, err)
}
