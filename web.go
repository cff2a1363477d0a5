package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const timeout time.Duration = 10 * time.Second

// server ties the stores, the transport and the game controller together.
// The timer granularities are fields so tests can shrink them.
type server struct {
	cfg      *Config
	store    *roomStore
	registry *registry
	started  time.Time
	upgrader websocket.Upgrader

	countdownTick time.Duration
	scoringDelay  time.Duration
}

func newServer(cfg *Config) *server {
	return &server{
		cfg:           cfg,
		store:         newRoomStore(cfg),
		registry:      newRegistry(),
		started:       time.Now(),
		countdownTick: time.Second,
		scoringDelay:  5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || cfg.corsOrigin == "*" {
					return true
				}
				return origin == cfg.corsOrigin
			},
		},
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", cfg.corsOrigin)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type healthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Rooms        int       `json:"rooms"`
	TotalPlayers int       `json:"totalPlayers"`
	Uptime       float64   `json:"uptime"` // seconds
}

func serveHealthCheck(cfg *Config, srv *server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, healthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Rooms:        srv.store.count(),
			TotalPlayers: srv.registry.count(),
			Uptime:       time.Since(srv.started).Seconds(),
		})
	}
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("songbox v" + releaseVersion + "\n"))
	}
}

// serveWS upgrades the connection and runs the join flow. roomId and name
// are mandatory query parameters; refusals use close code 1008 with a
// reason string.
func (srv *server) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := r.URL.Query().Get("roomId")
		name := strings.TrimSpace(r.URL.Query().Get("name"))

		conn, err := srv.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("ip", realIP(r)).Msg("Websocket upgrade failed")
			return
		}

		if roomID == "" || name == "" {
			closePolicy(conn, "roomId and name query parameters are required")
			return
		}

		c := newClient(conn, name, roomID)
		playerID := srv.registry.register(c)

		p := &player{
			id:       playerID,
			name:     name,
			joinedAt: time.Now(),
			client:   c,
		}

		joined, err := srv.store.joinOrCreate(roomID, p)
		if err != nil {
			srv.registry.unregister(playerID)
			closePolicy(conn, err.Error())
			return
		}

		joined.mu.Lock()
		snap := joined.snapshotLocked()
		c.trySend(roomJoinedMessage{
			Type:     "room_joined",
			Protocol: protocolVersion,
			PlayerID: playerID,
			Room:     snap,
		})
		joined.broadcastLocked(playerJoinedMessage{
			Type:   "player_joined",
			Player: playerInfo{ID: p.id, Name: p.name},
			Room:   snap,
		}, playerID)
		joined.mu.Unlock()

		go c.writePump()
		c.readPump(srv)
	}
}

func (srv *server) disconnect(c *client) {
	srv.registry.unregister(c.id)
	srv.store.removePlayer(c.roomID, c.id)
	c.close()
}

func newRouter(cfg *Config, srv *server) *httprouter.Router {
	mux := httprouter.New()

	// every unmatched path, regardless of method, is a JSON 404
	mux.HandleMethodNotAllowed = false
	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(cfg, w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	})

	mux.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", cfg.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
	})

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, p any) {
		log.Error().Any("panic", p).Str("path", r.URL.Path).Msg("Recovered from panic in handler")
		writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	mux.GET(cfg.prefix+"/", serveHealthCheck(cfg, srv))
	mux.GET(cfg.prefix+"/health", serveHealthCheck(cfg, srv))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg))
	mux.GET(cfg.prefix+"/ws", srv.serveWS())
	mux.GET(cfg.prefix+"/room/:roomId/qr", serveRoomQR(cfg))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

func Serve(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	srv := newServer(cfg)
	mux := newRouter(cfg, srv)

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}

	if cfg.sessionTimeout > 0 {
		go srv.store.reaper(ctx, cfg.sessionTimeout)
	}

	errs := make(chan error, 1)

	go func() {
		log.Info().Msgf("songbox v%s listening on %s://%s%s/", releaseVersion, cfg.scheme(), httpSrv.Addr, cfg.prefix)
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = httpSrv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		// startup failures, port already in use included, are fatal
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}
