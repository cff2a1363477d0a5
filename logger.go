package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func initLogging(cfg *Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func roomLogger(roomID string) *zerolog.Logger {
	l := log.With().Str("room", roomID).Logger()
	return &l
}

func playerLogger(roomID, playerID, name string) *zerolog.Logger {
	l := log.With().Str("room", roomID).Str("player", playerID).Str("name", name).Logger()
	return &l
}
