// Package server exposes the obligations controller over HTTP: JSON
// endpoints for the snapshot and the two commands, plus a websocket stream
// of snapshot updates.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/obligation-finder/internal/model"
	"github.com/sells-group/obligation-finder/internal/obligations"
)

// Controller is the subset of obligations.Controller the server drives.
type Controller interface {
	SelectYear(y model.FiscalYear) error
	Refresh() error
	Snapshot() model.Snapshot
	Subscribe() (<-chan model.Snapshot, func())
	Years() model.YearRange
}

var _ Controller = (*obligations.Controller)(nil)

// Config configures the server.
type Config struct {
	AllowedOrigins []string
	// RefreshCron, when set, schedules Refresh with a standard cron spec
	// (e.g. "0 6 * * *" or "@every 30m").
	RefreshCron string
}

// Message is the envelope written to websocket clients.
type Message struct {
	Type     string         `json:"type"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// Server wires the controller to HTTP routes.
type Server struct {
	ctrl     Controller
	cfg      Config
	hub      *Hub
	cron     *cron.Cron
	updates  <-chan model.Snapshot
	unsub    func()
	upgrader websocket.Upgrader
	router   chi.Router
}

// New builds a Server and subscribes it to controller updates, so changes
// made before Run starts are still pushed once it does. An invalid
// RefreshCron is an error.
func New(ctrl Controller, cfg Config) (*Server, error) {
	s := &Server{
		ctrl: ctrl,
		cfg:  cfg,
		hub:  NewHub(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	if cfg.RefreshCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.RefreshCron, s.scheduledRefresh); err != nil {
			return nil, eris.Wrapf(err, "server: parse refresh_cron %q", cfg.RefreshCron)
		}
		s.cron = c
	}

	s.router = s.routes()
	s.updates, s.unsub = ctrl.Subscribe()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Get("/snapshot", s.handleSnapshot)
		r.Put("/year", s.handleSelectYear)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/stream", s.handleStream)
	})

	return r
}

// Run pushes controller updates to websocket clients and drives the refresh
// schedule until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	defer s.unsub()

	if s.cron != nil {
		s.cron.Start()
		zap.L().Info("scheduled refresh enabled", zap.String("cron", s.cfg.RefreshCron))
		defer func() { <-s.cron.Stop().Done() }()
	}

	for {
		select {
		case <-ctx.Done():
			s.hub.CloseAll()
			return nil
		case snap, ok := <-s.updates:
			if !ok {
				s.hub.CloseAll()
				return nil
			}
			s.hub.BroadcastJSON(Message{Type: "snapshot", Snapshot: snap})
		}
	}
}

func (s *Server) scheduledRefresh() {
	if err := s.ctrl.Refresh(); err != nil {
		zap.L().Warn("scheduled refresh failed", zap.Error(err))
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
}

type yearsResponse struct {
	Years        []model.FiscalYear `json:"years"`
	SelectedYear model.FiscalYear   `json:"selected_year"`
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, yearsResponse{
		Years:        s.ctrl.Years().Years(),
		SelectedYear: s.ctrl.Snapshot().SelectedYear,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

type selectYearRequest struct {
	Year *int `json:"year"`
}

func (s *Server) handleSelectYear(w http.ResponseWriter, r *http.Request) {
	var req selectYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Year == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"year\": <fiscal year>}")
		return
	}

	if err := s.ctrl.SelectYear(model.FiscalYear(*req.Year)); err != nil {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Refresh(); err != nil {
		s.commandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Snapshot())
}

func (s *Server) commandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrYearOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, obligations.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zap.L().Error("controller command failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}

	initial := func() any { return Message{Type: "snapshot", Snapshot: s.ctrl.Snapshot()} }
	if err := s.hub.Join(ws, initial); err != nil {
		_ = ws.Close()
		return
	}
	zap.L().Debug("stream client connected", zap.Int("clients", s.hub.Count()))

	// Incoming messages are ignored; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Leave(ws)
	zap.L().Debug("stream client disconnected", zap.Int("clients", s.hub.Count()))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("encode response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
