package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostOnlyActionsDroppedFromNonHost(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	bob, _ := testJoin(t, srv, "r1", "Bob")
	drain(alice)
	drain(bob)

	srv.handle(bob, clientMessage{Type: "start_game"})
	assert.Equal(t, phaseWaiting, currentPhase(r))

	srv.handle(bob, clientMessage{Type: "game_settings_update", Settings: map[string]any{"mode": modeStandard}})
	r.mu.Lock()
	assert.Equal(t, modeChat, r.modeLocked())
	r.mu.Unlock()

	srv.handle(bob, clientMessage{Type: "kick_player", Target: alice.id})
	r.mu.Lock()
	assert.Len(t, r.players, 2)
	r.mu.Unlock()

	// no error frame goes back to the offender
	assert.Empty(t, drain(bob))
}

func TestHostCanStartGame(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	srv.handle(alice, clientMessage{Type: "start_game"})
	assert.Equal(t, phaseCountdown, currentPhase(r))
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	drain(alice)

	srv.handle(alice, clientMessage{Type: "dance"})

	assert.Equal(t, phaseWaiting, currentPhase(r))
	assert.Empty(t, drain(alice))
}

func TestMessageForUnknownRoomIsNoOp(t *testing.T) {
	srv := testServer(testConfig())

	ghost := &client{send: make(chan any, 8), name: "Ghost", roomID: "missing"}
	ghost.id = srv.registry.register(ghost)

	srv.handle(ghost, clientMessage{Type: "start_game"})
	assert.Empty(t, drain(ghost))
}

func TestKickRemovesPlayerAndClosesSocket(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	bob, _ := testJoin(t, srv, "r1", "Bob")
	drain(alice)
	drain(bob)

	srv.handle(alice, clientMessage{Type: "kick_player", Target: bob.id})

	msg := await(t, alice, func(m any) bool {
		rm, ok := m.(playerRemovedMessage)
		return ok && rm.Type == "player_kicked"
	}).(playerRemovedMessage)
	assert.Equal(t, bob.id, msg.PlayerID)

	r.mu.Lock()
	assert.Len(t, r.players, 1)
	r.mu.Unlock()

	_, ok := srv.registry.lookup(bob.id)
	assert.False(t, ok)

	bob.mu.Lock()
	assert.True(t, bob.closed)
	bob.mu.Unlock()
}

func TestBanPreventsRejoinByName(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	bob, _ := testJoin(t, srv, "r1", "Bob")
	drain(alice)

	srv.handle(alice, clientMessage{Type: "ban_player", Target: bob.id})

	msg := await(t, alice, func(m any) bool {
		rm, ok := m.(playerRemovedMessage)
		return ok && rm.Type == "player_banned"
	}).(playerRemovedMessage)
	assert.Equal(t, "Bob", msg.Name)

	p := &player{id: randomID(playerIDLength), name: "bob"}
	_, err := srv.store.joinOrCreate("r1", p)
	require.ErrorIs(t, err, errBanned)

	r.mu.Lock()
	assert.Len(t, r.players, 1)
	r.mu.Unlock()
}

func TestHostKickingThemselvesMigratesHost(t *testing.T) {
	srv := testServer(testConfig())

	alice, r := testJoin(t, srv, "r1", "Alice")
	bob, _ := testJoin(t, srv, "r1", "Bob")

	srv.handle(alice, clientMessage{Type: "kick_player", Target: alice.id})

	r.mu.Lock()
	assert.Equal(t, bob.id, r.hostID)
	assert.Len(t, r.players, 1)
	r.mu.Unlock()
}
