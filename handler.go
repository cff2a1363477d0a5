package main

import (
	"github.com/rs/zerolog/log"
)

// handle routes one inbound frame. Frames referencing an unknown room are
// dropped without a reply, as are privileged actions from non-hosts.
func (srv *server) handle(c *client, msg clientMessage) {
	r, ok := srv.store.get(c.roomID)
	if !ok {
		return
	}

	switch msg.Type {
	case "player_ready":
		srv.setReady(r, c, msg.Ready)
	case "start_game":
		if srv.fromHost(r, c, msg.Type) {
			srv.startGame(r)
		}
	case "game_settings_update":
		if srv.fromHost(r, c, msg.Type) {
			srv.updateSettings(r, msg.Settings)
		}
	case "submit_answer":
		srv.submitAnswer(r, c, msg.Answer)
	case "chat_guess":
		srv.chatGuess(r, c, msg.Guess)
	case "kick_player":
		if srv.fromHost(r, c, msg.Type) {
			srv.removeTarget(r, msg.Target, false)
		}
	case "ban_player":
		if srv.fromHost(r, c, msg.Type) {
			srv.removeTarget(r, msg.Target, true)
		}
	case "game_state_sync":
		srv.syncGameState(r, c, msg.GameState)
	default:
		log.Debug().Str("player", c.id).Str("type", msg.Type).Msg("Ignoring unknown message type")
	}
}

func (srv *server) fromHost(r *room, c *client, action string) bool {
	r.mu.Lock()
	isHost := r.hostID == c.id
	r.mu.Unlock()

	if !isHost {
		log.Debug().Str("player", c.id).Str("action", action).Msg("Dropping host-only action from non-host")
	}
	return isHost
}

// removeTarget kicks (and optionally bans) a player on the host's behalf.
// The ban list holds normalized display names, so a banned player cannot
// rejoin under the same name.
func (srv *server) removeTarget(r *room, targetID string, ban bool) {
	r.mu.Lock()

	target := r.findLocked(targetID)
	if target == nil {
		r.mu.Unlock()
		return
	}

	msgType := "player_kicked"
	if ban {
		r.banLocked(target.name)
		msgType = "player_banned"
	}

	r.broadcastLocked(playerRemovedMessage{Type: msgType, PlayerID: target.id, Name: target.name})
	r.touchLocked()
	r.mu.Unlock()

	srv.store.removePlayer(r.id, target.id)
	srv.registry.unregister(target.id)

	if target.client != nil {
		target.client.close()
	}

	playerLogger(r.id, target.id, target.name).Info().Bool("banned", ban).Msg("Removed player")
}
