package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWeb(t *testing.T) (*httptest.Server, *server) {
	t.Helper()

	cfg := testConfig()
	srv := testServer(cfg)
	ts := httptest.NewServer(newRouter(cfg, srv))
	t.Cleanup(ts.Close)

	return ts, srv
}

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// expectType reads frames until one carries the wanted type, skipping
// everything else.
func expectType(t *testing.T, conn *websocket.Conn, wanted string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg), "while waiting for %q", wanted)
		if msg["type"] == wanted {
			return msg
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestWeb(t)

	for _, path := range []string{"/", "/health"} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)

		var health healthResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
		res.Body.Close()

		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "ok", health.Status)
		assert.Zero(t, health.Rooms)
		assert.Zero(t, health.TotalPlayers)
		assert.False(t, health.Timestamp.IsZero())
	}
}

func TestHealthCountsPlayersAndRooms(t *testing.T) {
	ts, _ := newTestWeb(t)

	conn := dialWS(t, ts, "roomId=r1&name=Alice")
	expectType(t, conn, "room_joined")

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	var health healthResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
	assert.Equal(t, 1, health.Rooms)
	assert.Equal(t, 1, health.TotalPlayers)
}

func TestNotFoundReturnsJSON(t *testing.T) {
	ts, _ := newTestWeb(t)

	res, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "Not Found", body["error"])
}

func TestPreflightSetsCORSHeaders(t *testing.T) {
	ts, _ := newTestWeb(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Methods"), "GET")
}

func TestVersionEndpoint(t *testing.T) {
	ts, _ := newTestWeb(t)

	res, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "songbox v")
}

func TestRoomQREndpoint(t *testing.T) {
	ts, _ := newTestWeb(t)

	res, err := http.Get(ts.URL + "/room/r1/qr")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
}

func TestWSRequiresRoomAndName(t *testing.T) {
	ts, _ := newTestWeb(t)

	for _, query := range []string{"", "roomId=r1", "name=Alice"} {
		conn := dialWS(t, ts, query)

		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
			"expected policy violation close, got %v", err)
	}
}

// Scenario: two players join, the host starts the game, everyone watches
// the same countdown and lands in the first chat round.
func TestJoinStartCountdownRound(t *testing.T) {
	ts, srv := newTestWeb(t)

	alice := dialWS(t, ts, "roomId=r1&name=Alice")
	joined := expectType(t, alice, "room_joined")

	aliceID := joined["playerId"].(string)
	room := joined["room"].(map[string]any)
	assert.Equal(t, "r1", room["id"])
	assert.Equal(t, aliceID, room["hostId"])
	assert.Equal(t, "waiting", room["phase"])
	assert.Equal(t, float64(protocolVersion), joined["protocol"])

	bob := dialWS(t, ts, "roomId=r1&name=Bob")
	bobJoined := expectType(t, bob, "room_joined")
	assert.Len(t, bobJoined["room"].(map[string]any)["players"].([]any), 2)

	seen := expectType(t, alice, "player_joined")
	assert.Len(t, seen["room"].(map[string]any)["players"].([]any), 2)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "start_game"}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		starting := expectType(t, conn, "game_starting")
		assert.Equal(t, float64(5), starting["countdown"])

		for _, want := range []float64{4, 3, 2, 1} {
			tick := expectType(t, conn, "countdown_update")
			assert.Equal(t, want, tick["remaining"])
		}

		started := expectType(t, conn, "chat_round_started")
		assert.Equal(t, float64(1), started["round"])
	}

	r, ok := srv.store.get("r1")
	require.True(t, ok)
	assert.Equal(t, phasePlaying, currentPhase(r))
}

// Scenario: the host disconnects, the earliest-joined survivor inherits the
// room; once everyone is gone the room itself disappears.
func TestHostDisconnectMigratesThenDeletesRoom(t *testing.T) {
	ts, srv := newTestWeb(t)

	alice := dialWS(t, ts, "roomId=r1&name=Alice")
	expectType(t, alice, "room_joined")

	bob := dialWS(t, ts, "roomId=r1&name=Bob")
	bobID := expectType(t, bob, "room_joined")["playerId"].(string)

	carol := dialWS(t, ts, "roomId=r1&name=Carol")
	expectType(t, carol, "room_joined")

	require.NoError(t, alice.Close())

	for _, conn := range []*websocket.Conn{bob, carol} {
		newHost := expectType(t, conn, "new_host")
		assert.Equal(t, bobID, newHost["hostId"])
		assert.Equal(t, "Bob", newHost["name"])
	}

	require.NoError(t, bob.Close())
	require.NoError(t, carol.Close())

	require.Eventually(t, func() bool {
		_, ok := srv.store.get("r1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "room should be deleted once empty")

	require.Eventually(t, func() bool {
		return srv.registry.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBannedPlayerCannotReconnect(t *testing.T) {
	ts, _ := newTestWeb(t)

	alice := dialWS(t, ts, "roomId=r1&name=Alice")
	expectType(t, alice, "room_joined")

	bob := dialWS(t, ts, "roomId=r1&name=Bob")
	expectType(t, bob, "room_joined")

	joined := expectType(t, alice, "player_joined")
	bobID := joined["player"].(map[string]any)["id"].(string)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "ban_player", "targetPlayerId": bobID}))

	banned := expectType(t, bob, "player_banned")
	assert.Equal(t, bobID, banned["playerId"])

	// the banned socket is closed by the server
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := bob.ReadMessage(); err != nil {
			break
		}
	}

	rejoin := dialWS(t, ts, "roomId=r1&name=Bob")
	_, _, err := rejoin.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestSettingsRoundTripToLateJoiner(t *testing.T) {
	ts, _ := newTestWeb(t)

	alice := dialWS(t, ts, "roomId=r1&name=Alice")
	expectType(t, alice, "room_joined")

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":     "game_settings_update",
		"settings": map[string]any{"mode": "chat", "yearFrom": 1990},
	}))
	updated := expectType(t, alice, "game_settings_updated")
	assert.Equal(t, "chat", updated["settings"].(map[string]any)["mode"])

	bob := dialWS(t, ts, "roomId=r1&name=Bob")
	joined := expectType(t, bob, "room_joined")
	settings := joined["room"].(map[string]any)["settings"].(map[string]any)
	assert.Equal(t, "chat", settings["mode"])
	assert.Equal(t, float64(1990), settings["yearFrom"])
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	ts, _ := newTestWeb(t)

	alice := dialWS(t, ts, "roomId=r1&name=Alice")
	expectType(t, alice, "room_joined")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))

	// the connection still works: a valid frame round-trips afterwards
	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":     "game_settings_update",
		"settings": map[string]any{"mode": "standard"},
	}))
	expectType(t, alice, "game_settings_updated")
}
