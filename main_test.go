package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		corsOrigin:     "*",
		maxPlayers:     8,
		maxRooms:       16,
		port:           8080,
		rounds:         3,
		roundTimeout:   40 * time.Millisecond,
		sessionTimeout: time.Hour,
	}
}

func testServer(cfg *Config) *server {
	srv := newServer(cfg)
	srv.countdownTick = 5 * time.Millisecond
	srv.scoringDelay = 10 * time.Millisecond
	return srv
}

// testJoin runs the join flow without a real socket; messages land in the
// client's send buffer.
func testJoin(t *testing.T, srv *server, roomID, name string) (*client, *room) {
	t.Helper()

	c := &client{
		send:   make(chan any, 64),
		name:   name,
		roomID: roomID,
	}
	id := srv.registry.register(c)

	p := &player{id: id, name: name, joinedAt: time.Now(), client: c}
	r, err := srv.store.joinOrCreate(roomID, p)
	require.NoError(t, err)

	return c, r
}

// drain empties the client's buffered messages.
func drain(c *client) []any {
	var out []any
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

// await pulls buffered messages until one satisfies match or the deadline
// passes.
func await(t *testing.T, c *client, match func(any) bool) any {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				t.Fatal("send channel closed while waiting for message")
			}
			if match(msg) {
				return msg
			}
		case <-deadline:
			t.Fatal("timed out waiting for message")
		}
	}
}

func currentPhase(r *room) phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func setChatRound(r *room, title, artist string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phasePlaying
	r.gameStarted = true
	r.currentRound = 1
	r.guessed = make(map[string]bool)
	r.answers[1] = make(map[string]answerRecord)
	r.song = &song{Title: title, Artist: artist}
	r.stopTimerLocked()
}
