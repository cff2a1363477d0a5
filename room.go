package main

import (
	"maps"
	"sort"
	"strings"
	"sync"
	"time"
)

type phase string

const (
	phaseWaiting   phase = "waiting"
	phaseCountdown phase = "countdown"
	phasePlaying   phase = "playing"
	phaseScoring   phase = "scoring"
	phaseFinished  phase = "finished"
)

const (
	modeChat     = "chat"
	modeStandard = "standard"
)

type player struct {
	id       string
	name     string
	ready    bool
	score    int
	joinedAt time.Time
	client   *client
}

// room owns all per-session state. Every field below mu is guarded by it;
// mutation only happens through store and game methods.
type room struct {
	id string

	mu          sync.Mutex
	hostID      string
	players     []*player // join order, earliest first
	phase       phase
	gameStarted bool

	currentRound int
	totalRounds  int
	settings     map[string]any

	// round-scoped state, reset when a new round starts
	song       *song
	roundStart time.Time
	guessed    map[string]bool

	answers map[int]map[string]answerRecord
	banned  map[string]bool // lowercased display names

	timer      *time.Timer
	lastActive time.Time
	closed     bool
}

func newRoom(id string, totalRounds int) *room {
	now := time.Now()
	return &room{
		id:           id,
		phase:        phaseWaiting,
		currentRound: 0,
		totalRounds:  totalRounds,
		settings:     map[string]any{"mode": modeChat},
		guessed:      make(map[string]bool),
		answers:      make(map[int]map[string]answerRecord),
		banned:       make(map[string]bool),
		lastActive:   now,
	}
}

func (r *room) findLocked(playerID string) *player {
	for _, p := range r.players {
		if p.id == playerID {
			return p
		}
	}
	return nil
}

func (r *room) modeLocked() string {
	if m, ok := r.settings["mode"].(string); ok && m != "" {
		return m
	}
	return modeChat
}

func (r *room) isBannedLocked(name string) bool {
	return r.banned[strings.ToLower(strings.TrimSpace(name))]
}

func (r *room) banLocked(name string) {
	r.banned[strings.ToLower(strings.TrimSpace(name))] = true
}

func (r *room) touchLocked() {
	r.lastActive = time.Now()
}

func (r *room) snapshotLocked() roomSnapshot {
	players := make([]playerInfo, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, playerInfo{ID: p.id, Name: p.name, Ready: p.ready, Score: p.score})
	}
	return roomSnapshot{
		ID:           r.id,
		HostID:       r.hostID,
		Phase:        r.phase,
		GameStarted:  r.gameStarted,
		Players:      players,
		Settings:     maps.Clone(r.settings),
		CurrentRound: r.currentRound,
		TotalRounds:  r.totalRounds,
	}
}

// scoresLocked returns the leaderboard sorted by score descending.
// Ties keep join order, so the earliest joiner ranks first.
func (r *room) scoresLocked() []scoreEntry {
	scores := make([]scoreEntry, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, scoreEntry{PlayerID: p.id, Name: p.name, Score: p.score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// setTimerLocked replaces the room's single outstanding timer. Callbacks
// must re-check phase and the closed flag under the lock.
func (r *room) setTimerLocked(d time.Duration, f func()) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, f)
}

func (r *room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// broadcastLocked fans a payload out to every connected player except the
// excluded ids. Slow or closed sockets are skipped; no state is mutated.
func (r *room) broadcastLocked(payload any, exclude ...string) {
	for _, p := range r.players {
		if len(exclude) > 0 {
			skip := false
			for _, id := range exclude {
				if p.id == id {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}
		if p.client != nil {
			p.client.trySend(payload)
		}
	}
}
