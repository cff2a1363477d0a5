package main

import (
	"encoding/json"
	"maps"
	"strings"
	"time"
)

const (
	countdownStart     = 5
	correctGuessPoints = 10
)

// startGame moves a waiting room into the countdown. The countdown is a
// chain of one-tick timers so teardown only ever has one handle to stop.
func (srv *server) startGame(r *room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != phaseWaiting {
		return
	}

	r.phase = phaseCountdown
	r.gameStarted = true
	r.currentRound = 1
	r.touchLocked()

	r.broadcastLocked(gameStartingMessage{Type: "game_starting", Countdown: countdownStart})
	r.setTimerLocked(srv.countdownTick, func() { srv.countdownStep(r, countdownStart-1) })

	roomLogger(r.id).Info().Msg("Game starting")
}

func (srv *server) countdownStep(r *room, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != phaseCountdown {
		return
	}

	if remaining > 0 {
		r.broadcastLocked(countdownMessage{Type: "countdown_update", Remaining: remaining})
		r.setTimerLocked(srv.countdownTick, func() { srv.countdownStep(r, remaining-1) })
		return
	}

	srv.startRoundLocked(r)
}

func (srv *server) startRoundLocked(r *room) {
	r.phase = phasePlaying
	r.roundStart = time.Now()
	r.guessed = make(map[string]bool)
	if _, ok := r.answers[r.currentRound]; !ok {
		r.answers[r.currentRound] = make(map[string]answerRecord)
	}

	msg := roundStartedMessage{
		Round:       r.currentRound,
		TotalRounds: r.totalRounds,
		Duration:    srv.cfg.roundTimeout.Seconds(),
	}

	if r.modeLocked() == modeChat {
		r.song = pickSong(songPool, r.settings, r.song)
		msg.Type = "chat_round_started"

		round := r.currentRound
		r.setTimerLocked(srv.cfg.roundTimeout, func() { srv.endRound(r, round) })
	} else {
		// standard mode: clients drive round advancement via game_state_sync,
		// the server only records submissions
		msg.Type = "gameplay_started"
		r.stopTimerLocked()
	}

	r.broadcastLocked(msg)
	roomLogger(r.id).Debug().Int("round", r.currentRound).Str("mode", r.modeLocked()).Msg("Round started")
}

func (srv *server) endRound(r *room, round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != phasePlaying || r.currentRound != round {
		return
	}

	r.phase = phaseScoring

	ended := roundEndedMessage{
		Type:   "chat_round_ended",
		Round:  r.currentRound,
		Scores: r.scoresLocked(),
	}
	if r.song != nil {
		ended.Song = r.song.Title
		ended.Artist = r.song.Artist
	}
	r.broadcastLocked(ended)

	r.setTimerLocked(srv.scoringDelay, func() { srv.advanceRound(r, round) })
}

func (srv *server) advanceRound(r *room, round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != phaseScoring || r.currentRound != round {
		return
	}

	if r.currentRound < r.totalRounds {
		r.currentRound++
		srv.startRoundLocked(r)
		return
	}

	r.phase = phaseFinished
	r.stopTimerLocked()

	scores := r.scoresLocked()
	ended := gameEndedMessage{Type: "game_ended", Scores: scores}
	if len(scores) > 0 {
		ended.Winner = scores[0]
	}
	r.broadcastLocked(ended)

	roomLogger(r.id).Info().Msg("Game ended")
}

// setReady flips the ready flag. Repeating the same value changes nothing
// and broadcasts nothing.
func (srv *server) setReady(r *room, c *client, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(c.id)
	if p == nil {
		return
	}
	r.touchLocked()

	if p.ready == ready {
		return
	}
	p.ready = ready

	r.broadcastLocked(playerReadyMessage{Type: "player_ready_update", PlayerID: p.id, Ready: ready})

	if ready {
		for _, q := range r.players {
			if !q.ready {
				return
			}
		}
		r.broadcastLocked(allPlayersReadyMessage{Type: "all_players_ready"})
	}
}

// chatGuess grades a chat-mode guess against the current song title.
// Every guess is echoed to the room; each player scores at most once per
// round, so a repeat correct guess falls through as plain chat.
func (srv *server) chatGuess(r *room, c *client, guess string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(c.id)
	if p == nil {
		return
	}
	r.touchLocked()

	if r.phase != phasePlaying || r.modeLocked() != modeChat || r.song == nil {
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(guess))
	correct := normalized == strings.ToLower(r.song.Title)

	if correct && !r.guessed[p.id] {
		r.guessed[p.id] = true
		p.score += correctGuessPoints

		if ledger := r.answers[r.currentRound]; ledger != nil {
			ledger[p.id] = answerRecord{Song: guess, Correct: true, Points: correctGuessPoints}
		}

		r.broadcastLocked(chatGuessCorrectMessage{
			Type:     "chat_guess_correct",
			PlayerID: p.id,
			Name:     p.name,
			Points:   correctGuessPoints,
			Score:    p.score,
		})
		return
	}

	r.broadcastLocked(chatGuessIncorrectMessage{
		Type:     "chat_guess_incorrect",
		PlayerID: p.id,
		Name:     p.name,
		Guess:    guess,
	})
}

// submitAnswer appends a free-form answer to the round ledger. Entries are
// write-once per player per round; the server relays the running set but
// does not grade it.
func (srv *server) submitAnswer(r *room, c *client, answer *answerPayload) {
	if answer == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(c.id)
	if p == nil {
		return
	}
	r.touchLocked()

	if r.phase != phasePlaying {
		return
	}

	ledger := r.answers[r.currentRound]
	if ledger == nil {
		ledger = make(map[string]answerRecord)
		r.answers[r.currentRound] = ledger
	}
	if _, dup := ledger[p.id]; dup {
		return
	}
	ledger[p.id] = answerRecord{Song: answer.Song, Artist: answer.Artist}

	r.broadcastLocked(answerSubmittedMessage{
		Type:     "answer_submitted",
		Round:    r.currentRound,
		PlayerID: p.id,
		Answers:  maps.Clone(ledger),
	})
}

func (srv *server) updateSettings(r *room, settings map[string]any) {
	if settings == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	for k, v := range settings {
		r.settings[k] = v
	}

	r.broadcastLocked(settingsUpdatedMessage{
		Type:     "game_settings_updated",
		Settings: maps.Clone(r.settings),
	})
}

// syncGameState relays a client-authoritative state blob to the rest of
// the room without interpreting it.
func (srv *server) syncGameState(r *room, c *client, state json.RawMessage) {
	if len(state) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(c.id) == nil {
		return
	}
	r.touchLocked()

	r.broadcastLocked(gameStateUpdatedMessage{
		Type:      "game_state_updated",
		PlayerID:  c.id,
		GameState: state,
	}, c.id)
}
