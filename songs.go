package main

import (
	"math/rand"
)

type song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
}

// songPool backs chat mode. Guesses are matched against the title,
// lowercased and trimmed, so entries should avoid decorative punctuation.
var songPool = []song{
	{"Imagine", "John Lennon", 1971},
	{"Bohemian Rhapsody", "Queen", 1975},
	{"Hotel California", "Eagles", 1977},
	{"Billie Jean", "Michael Jackson", 1983},
	{"Sweet Child O Mine", "Guns N Roses", 1987},
	{"Smells Like Teen Spirit", "Nirvana", 1991},
	{"Wonderwall", "Oasis", 1995},
	{"No Surprises", "Radiohead", 1997},
	{"Hey Ya", "Outkast", 2003},
	{"Mr Brightside", "The Killers", 2004},
	{"Rolling in the Deep", "Adele", 2010},
	{"Get Lucky", "Daft Punk", 2013},
	{"Uptown Funk", "Mark Ronson", 2014},
	{"Blinding Lights", "The Weeknd", 2019},
	{"Levitating", "Dua Lipa", 2020},
	{"As It Was", "Harry Styles", 2022},
}

// pickSong selects a random song for the next round, honoring the room's
// optional year filters and avoiding an immediate repeat when possible.
func pickSong(pool []song, settings map[string]any, current *song) *song {
	from, hasFrom := settingsInt(settings, "yearFrom")
	to, hasTo := settingsInt(settings, "yearTo")

	candidates := make([]song, 0, len(pool))
	for _, s := range pool {
		if hasFrom && s.Year < from {
			continue
		}
		if hasTo && s.Year > to {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	if current != nil && len(candidates) > 1 {
		trimmed := candidates[:0:0]
		for _, s := range candidates {
			if s.Title != current.Title {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			candidates = trimmed
		}
	}

	picked := candidates[rand.Intn(len(candidates))]
	return &picked
}

// settingsInt reads a numeric value out of the free-form settings bag,
// which holds float64s after a JSON round trip but ints when set in-process.
func settingsInt(settings map[string]any, key string) (int, bool) {
	switch v := settings[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
