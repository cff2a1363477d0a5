package main

import (
	"encoding/json"
)

// protocolVersion is carried in room_joined so clients can detect
// incompatible servers. The wire envelope is otherwise a flat JSON object
// with a mandatory "type" field.
const protocolVersion = 1

// clientMessage covers every inbound frame; unused fields stay zero.
type clientMessage struct {
	Type      string          `json:"type"`                     // message discriminator
	Ready     bool            `json:"ready,omitempty"`          // player_ready
	Settings  map[string]any  `json:"settings,omitempty"`       // game_settings_update
	Answer    *answerPayload  `json:"answer,omitempty"`         // submit_answer
	Guess     string          `json:"guess,omitempty"`          // chat_guess
	Target    string          `json:"targetPlayerId,omitempty"` // kick_player / ban_player
	GameState json.RawMessage `json:"gameState,omitempty"`      // game_state_sync
}

type answerPayload struct {
	Song   string `json:"song"`
	Artist string `json:"artist,omitempty"`
}

// answerRecord is one ledger entry: the raw submission plus whatever the
// server graded. Chat-mode guesses are graded; free-form answers are not.
type answerRecord struct {
	Song    string `json:"song"`
	Artist  string `json:"artist,omitempty"`
	Correct bool   `json:"correct"`
	Points  int    `json:"points"`
}

type playerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Score int    `json:"score"`
}

type roomSnapshot struct {
	ID           string         `json:"id"`
	HostID       string         `json:"hostId"`
	Phase        phase          `json:"phase"`
	GameStarted  bool           `json:"gameStarted"`
	Players      []playerInfo   `json:"players"`
	Settings     map[string]any `json:"settings"`
	CurrentRound int            `json:"currentRound"`
	TotalRounds  int            `json:"totalRounds"`
}

type roomJoinedMessage struct {
	Type     string       `json:"type"` // "room_joined"
	Protocol int          `json:"protocol"`
	PlayerID string       `json:"playerId"`
	Room     roomSnapshot `json:"room"`
}

type playerJoinedMessage struct {
	Type   string       `json:"type"` // "player_joined"
	Player playerInfo   `json:"player"`
	Room   roomSnapshot `json:"room"`
}

type playerLeftMessage struct {
	Type     string       `json:"type"` // "player_left"
	PlayerID string       `json:"playerId"`
	Name     string       `json:"name"`
	Room     roomSnapshot `json:"room"`
}

type playerReadyMessage struct {
	Type     string `json:"type"` // "player_ready_update"
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type allPlayersReadyMessage struct {
	Type string `json:"type"` // "all_players_ready"
}

type gameStartingMessage struct {
	Type      string `json:"type"` // "game_starting"
	Countdown int    `json:"countdown"`
}

type countdownMessage struct {
	Type      string `json:"type"` // "countdown_update"
	Remaining int    `json:"remaining"`
}

type roundStartedMessage struct {
	Type        string  `json:"type"` // "gameplay_started" or "chat_round_started"
	Round       int     `json:"round"`
	TotalRounds int     `json:"totalRounds"`
	Duration    float64 `json:"duration"` // seconds
}

type chatGuessCorrectMessage struct {
	Type     string `json:"type"` // "chat_guess_correct"
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Score    int    `json:"score"`
}

type chatGuessIncorrectMessage struct {
	Type     string `json:"type"` // "chat_guess_incorrect"
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Guess    string `json:"guess"`
}

type scoreEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type roundEndedMessage struct {
	Type   string       `json:"type"` // "chat_round_ended"
	Round  int          `json:"round"`
	Song   string       `json:"song"`
	Artist string       `json:"artist"`
	Scores []scoreEntry `json:"scores"`
}

type gameEndedMessage struct {
	Type   string       `json:"type"` // "game_ended"
	Scores []scoreEntry `json:"scores"`
	Winner scoreEntry   `json:"winner"`
}

type answerSubmittedMessage struct {
	Type     string                  `json:"type"` // "answer_submitted"
	Round    int                     `json:"round"`
	PlayerID string                  `json:"playerId"`
	Answers  map[string]answerRecord `json:"answers"`
}

type settingsUpdatedMessage struct {
	Type     string         `json:"type"` // "game_settings_updated"
	Settings map[string]any `json:"settings"`
}

type gameStateUpdatedMessage struct {
	Type      string          `json:"type"` // "game_state_updated"
	PlayerID  string          `json:"playerId"`
	GameState json.RawMessage `json:"gameState"`
}

type newHostMessage struct {
	Type   string `json:"type"` // "new_host"
	HostID string `json:"hostId"`
	Name   string `json:"name"`
}

type playerRemovedMessage struct {
	Type     string `json:"type"` // "player_kicked" or "player_banned"
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}
