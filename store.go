package main

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errRoomFull   = errors.New("room is full")
	errServerFull = errors.New("room limit reached")
	errBanned     = errors.New("banned from this room")
)

// roomStore is the sole owner of room objects. All joins, leaves and
// lookups go through it; rooms with zero players never survive a call.
type roomStore struct {
	mu    sync.Mutex
	rooms map[string]*room
	cfg   *Config
}

func newRoomStore(cfg *Config) *roomStore {
	return &roomStore{
		rooms: make(map[string]*room),
		cfg:   cfg,
	}
}

func (s *roomStore) get(roomID string) (*room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	return r, ok
}

func (s *roomStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// joinOrCreate adds the player to the named room, creating it with the
// joiner as host when absent. Room ids are client-supplied and taken as-is.
func (s *roomStore) joinOrCreate(roomID string, p *player) (*room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		if len(s.rooms) >= s.cfg.maxRooms {
			return nil, errServerFull
		}
		r = newRoom(roomID, s.cfg.rounds)
		s.rooms[roomID] = r
		roomLogger(roomID).Info().Msg("Created room")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isBannedLocked(p.name) {
		return nil, errBanned
	}
	if len(r.players) >= s.cfg.maxPlayers {
		return nil, errRoomFull
	}

	r.players = append(r.players, p)
	if r.hostID == "" {
		r.hostID = p.id
	}
	r.touchLocked()

	playerLogger(roomID, p.id, p.name).Info().Msg("Joined room")

	return r, nil
}

// removePlayer drops the player from the room, migrating host privileges
// to the earliest-joined survivor and deleting the room when it empties.
// Unknown rooms and players are silent no-ops.
func (s *roomStore) removePlayer(roomID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed *player
	for i, p := range r.players {
		if p.id == playerID {
			removed = p
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	if removed == nil {
		return
	}

	delete(r.guessed, playerID)
	r.touchLocked()

	playerLogger(roomID, removed.id, removed.name).Info().Msg("Left room")

	if len(r.players) == 0 {
		r.closed = true
		r.stopTimerLocked()
		delete(s.rooms, roomID)
		roomLogger(roomID).Info().Msg("Removed empty room")
		return
	}

	r.broadcastLocked(playerLeftMessage{
		Type:     "player_left",
		PlayerID: removed.id,
		Name:     removed.name,
		Room:     r.snapshotLocked(),
	})

	if r.hostID == playerID {
		next := r.players[0]
		r.hostID = next.id
		r.broadcastLocked(newHostMessage{Type: "new_host", HostID: next.id, Name: next.name})
		playerLogger(roomID, next.id, next.name).Info().Msg("Promoted to host")
	}
}

// reaper periodically closes rooms whose players went quiet.
func (s *roomStore) reaper(ctx context.Context, idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-idleTimeout)

		s.mu.Lock()
		for id, r := range s.rooms {
			r.mu.Lock()
			if r.lastActive.Before(cutoff) {
				r.closed = true
				r.stopTimerLocked()
				for _, p := range r.players {
					if p.client != nil {
						p.client.close()
					}
				}
				delete(s.rooms, id)
				roomLogger(id).Info().Msg("Reaped idle room")
			}
			r.mu.Unlock()
		}
		s.mu.Unlock()
	}
}
