// Package api serves the transparency surface over HTTP.
// GET endpoints are public and read-only. POST /act drives the player
// character. Other POST endpoints require the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/persistence"
)

const (
	maxStreams   = 8
	maxLimit     = 500
	streamBuffer = 256
)

// Server serves the village over HTTP. Every read and write of the
// simulation is funnelled through the engine goroutine.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // optional; enables /snapshot and /history
	Port     int
	AdminKey string        // Bearer token for admin endpoints. Empty = disabled.
	RelayKey string        // Bearer token for /stream. Empty = open.
	Timeout  time.Duration // Wait for the engine before giving up with 503.

	// Player commands per client per minute. Zero means 30.
	ActRate int

	streams  atomic.Int32
	upgrader websocket.Upgrader
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	rate := s.ActRate
	if rate <= 0 {
		rate = 30
	}
	actLimiter := NewRateLimiter(rate, time.Minute)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/decisions", s.handleDecisions)
	mux.HandleFunc("GET /api/v1/decisions/{id}/explain", s.handleExplain)
	mux.HandleFunc("GET /api/v1/entities", s.handleEntities)
	mux.HandleFunc("GET /api/v1/entities/{id}", s.handleEntity)
	mux.HandleFunc("GET /api/v1/entities/{id}/relationships", s.handleRelationships)
	mux.HandleFunc("GET /api/v1/crops", s.handleCrops)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	mux.HandleFunc("POST /api/v1/act", RateLimitMiddleware(actLimiter, s.handleAct))
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.InfoContext(ctx, "HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !bearerMatches(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// do runs fn on the engine goroutine. On failure it has already written
// the response.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(sim *engine.Simulation)) bool {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := s.Eng.Do(ctx, fn); err != nil {
		slog.Warn("engine unavailable", "path", r.URL.Path, "error", err)
		http.Error(w, "simulation busy", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	ok := s.do(w, r, func(sim *engine.Simulation) {
		status = map[string]any{
			"name":       sim.Options.WorldName,
			"run_id":     sim.RunID,
			"sim_time":   engine.SimTime(sim),
			"day":        sim.Clock.Day,
			"season":     sim.Clock.Season.String(),
			"season_day": sim.Clock.DayOfSeason(),
			"weather":    sim.Weather.Current.String(),
			"speed":      s.Eng.Speed,
			"ticks":      s.Eng.Ticks(),
			"player":     sim.Player,
		}
	})
	if ok {
		writeJSON(w, status)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st engine.Stats
	if s.do(w, r, func(sim *engine.Simulation) { st = sim.Stats() }) {
		writeJSON(w, st)
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var out map[string]string
	ok := s.do(w, r, func(sim *engine.Simulation) {
		out = map[string]string{
			"weather":  sim.Weather.Current.String(),
			"season":   sim.Clock.Season.String(),
			"forecast": sim.Forecast(),
		}
	})
	if ok {
		writeJSON(w, out)
	}
}

// queryInt reads an optional positive integer parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func queryLimit(r *http.Request) (int, error) {
	n, err := queryInt(r, "limit")
	if err != nil {
		return 0, err
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

func parseEventFilter(r *http.Request) (engine.EventFilter, error) {
	var f engine.EventFilter
	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		k, err := event.ParseKind(v)
		if err != nil {
			return f, err
		}
		f.Kind = &k
	}
	if v := q.Get("subkind"); v != "" {
		sk, err := event.ParseSubKind(v)
		if err != nil {
			return f, err
		}
		f.SubKind = &sk
	}
	entity, err := queryInt(r, "entity")
	if err != nil {
		return f, err
	}
	f.Entity = ecs.EntityID(entity)
	if f.Day, err = queryInt(r, "day"); err != nil {
		return f, err
	}
	if f.Limit, err = queryLimit(r); err != nil {
		return f, err
	}
	return f, nil
}

func parseDecisionFilter(r *http.Request) (engine.DecisionFilter, error) {
	var f engine.DecisionFilter
	q := r.URL.Query()
	if v := q.Get("action"); v != "" {
		a, err := decision.ParseAction(v)
		if err != nil {
			return f, err
		}
		f.Action = &a
	}
	if v := q.Get("succeeded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("succeeded must be true or false")
		}
		f.Succeeded = &b
	}
	entity, err := queryInt(r, "entity")
	if err != nil {
		return f, err
	}
	f.Entity = ecs.EntityID(entity)
	if f.Day, err = queryInt(r, "day"); err != nil {
		return f, err
	}
	if f.Limit, err = queryLimit(r); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var out []event.Event
	if s.do(w, r, func(sim *engine.Simulation) { out = sim.QueryEvents(f) }) {
		writeJSON(w, nonNil(out))
	}
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	f, err := parseDecisionFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var out []decision.Record
	if s.do(w, r, func(sim *engine.Simulation) { out = sim.QueryDecisions(f) }) {
		writeJSON(w, nonNil(out))
	}
}

// handleExplain returns the explanation as JSON, or as plain text with
// ?format=text.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid decision id", http.StatusBadRequest)
		return
	}
	var (
		ex      engine.Explanation
		lookErr error
	)
	if !s.do(w, r, func(sim *engine.Simulation) { ex, lookErr = sim.Explain(id) }) {
		return
	}
	if errors.Is(lookErr, engine.ErrNotFound) {
		http.Error(w, "decision not found", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(ex.Text))
		return
	}
	writeJSON(w, ex)
}

func pathEntity(r *http.Request) (ecs.EntityID, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return ecs.NoEntity, fmt.Errorf("invalid entity id")
	}
	return ecs.EntityID(id), nil
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	var out []engine.EntityView
	if s.do(w, r, func(sim *engine.Simulation) { out = sim.Entities() }) {
		writeJSON(w, nonNil(out))
	}
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	id, err := pathEntity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var (
		view    engine.EntityView
		lookErr error
	)
	if !s.do(w, r, func(sim *engine.Simulation) { view, lookErr = sim.Entity(id) }) {
		return
	}
	if lookErr != nil {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	id, err := pathEntity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var (
		out   any
		alive bool
	)
	ok := s.do(w, r, func(sim *engine.Simulation) {
		alive = sim.Registry.Alive(id)
		out = nonNil(sim.RelationshipsOf(id))
	})
	if !ok {
		return
	}
	if !alive {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	var out []engine.CropView
	if s.do(w, r, func(sim *engine.Simulation) { out = sim.Crops() }) {
		writeJSON(w, nonNil(out))
	}
}

// handleHistory reads archived events from the database, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if limit == 0 {
		limit = engine.DefaultQueryLimit
	}
	var runID string
	if !s.do(w, r, func(sim *engine.Simulation) { runID = sim.RunID }) {
		return
	}
	rows, err := s.DB.RecentEvents(runID, limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, nonNil(rows))
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16*1024))
	if err := dec.Decode(&cmd); err != nil {
		http.Error(w, "invalid command: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		res    engine.Result
		actErr error
	)
	if !s.do(w, r, func(sim *engine.Simulation) { res, actErr = sim.Act(cmd) }) {
		return
	}
	switch {
	case errors.Is(actErr, engine.ErrUnknownCommand):
		http.Error(w, actErr.Error(), http.StatusBadRequest)
		return
	case errors.Is(actErr, engine.ErrNoPlayer):
		http.Error(w, actErr.Error(), http.StatusConflict)
		return
	case actErr != nil:
		slog.Error("player command failed", "action", cmd.Action, "error", actErr)
		http.Error(w, "command failed", http.StatusInternalServerError)
		return
	}
	slog.Info("player command", "action", cmd.Action, "decision", res.DecisionID, "succeeded", res.Succeeded)
	writeJSON(w, res)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	if !s.do(w, r, func(*engine.Simulation) { s.Eng.Speed = req.Speed }) {
		return
	}
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": req.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	var (
		day     int
		saveErr error
	)
	if !s.do(w, r, func(sim *engine.Simulation) {
		day = sim.Clock.Day
		saveErr = s.DB.SaveWorldState(sim)
	}) {
		return
	}
	if saveErr != nil {
		slog.Error("snapshot save failed", "error", saveErr)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"day":     day,
		"message": "snapshot saved",
	})
}

// handleStream upgrades to a websocket and pushes each new event as a JSON
// text message, after a catch-up of recent events. ?kind= narrows it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey != "" && !bearerMatches(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	filter := event.Any()
	catchUp := engine.EventFilter{Limit: engine.DefaultQueryLimit}
	if v := r.URL.Query().Get("kind"); v != "" {
		k, err := event.ParseKind(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = event.Only(k)
		catchUp.Kind = &k
	}

	if s.streams.Add(1) > maxStreams {
		s.streams.Add(-1)
		http.Error(w, "too many streams", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.Add(-1)

	out := make(chan event.Event, streamBuffer)
	var (
		token   event.Token
		recent  []event.Event
		subErr  error
		dropped atomic.Int64
	)
	ok := s.do(w, r, func(sim *engine.Simulation) {
		recent = sim.QueryEvents(catchUp)
		token, subErr = sim.Bus.Subscribe(filter, func(e event.Event) {
			select {
			case out <- e:
			default:
				dropped.Add(1)
			}
		})
	})
	if !ok {
		return
	}
	if subErr != nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Eng.Do(ctx, func(sim *engine.Simulation) { sim.Bus.Unsubscribe(token) })
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", clientAddr(r))

	// Reader: only close frames matter.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(e event.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(e)
	}
	for _, e := range recent {
		if err := write(e); err != nil {
			return
		}
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case e := <-out:
			if err := write(e); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", clientAddr(r), "dropped", dropped.Load())
			return
		case <-r.Context().Done():
			return
		}
	}
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}
