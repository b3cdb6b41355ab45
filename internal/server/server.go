package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/comigor/calendar-agent/internal/agent"
	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/geo"
	"github.com/comigor/calendar-agent/internal/logger"
	"github.com/comigor/calendar-agent/internal/planner"
	"github.com/comigor/calendar-agent/internal/weather"
	"github.com/comigor/calendar-agent/pkg/tools"
)

// Chat runs conversation turns.
type Chat interface {
	HandleTurn(ctx context.Context, sessionID, text string) (*agent.TurnResult, error)
	Reset(ctx context.Context, sessionID string) error
}

// Calendar is the calendar backend behind the pass-through endpoints.
type Calendar interface {
	Calendars(ctx context.Context) ([]calendar.Calendar, error)
	Events(ctx context.Context, q calendar.EventQuery) (*calendar.EventList, error)
	CreateEvent(ctx context.Context, calendarID string, in calendar.EventInput) (calendar.Result, error)
	UpdateEvent(ctx context.Context, eventID, calendarID string, patch calendar.EventPatch) (calendar.Result, error)
	DeleteEvent(ctx context.Context, eventID, calendarID string) (calendar.Result, error)
}

type Weather interface {
	Report(ctx context.Context, q weather.Query) (*weather.Report, error)
}

type Locator interface {
	Locate(ctx context.Context, ip string) geo.Location
}

// Planner schedules orders into the calendars.
type Planner interface {
	Backward(ctx context.Context, o planner.Order) (*planner.Plan, error)
	Forward(ctx context.Context, o planner.Order) (*planner.Plan, error)
	Optimize(ctx context.Context, req planner.OptimizeRequest) (*planner.Optimization, error)
}

var (
	_ Chat     = (*agent.Agent)(nil)
	_ Calendar = (*calendar.Client)(nil)
	_ Weather  = (*weather.Client)(nil)
	_ Locator  = (*geo.Locator)(nil)
	_ Planner  = (*planner.Service)(nil)
)

// Deps are the collaborators the HTTP handlers delegate to.
type Deps struct {
	Chat     Chat
	Calendar Calendar
	Weather  Weather
	Geo      Locator
	Planner  Planner
	Tools    *tools.ToolManager
}

// Server is the HTTP front end of the agent.
type Server struct {
	cfg      *config.Config
	deps     Deps
	validate *validator.Validate
	version  string
}

func New(cfg *config.Config, deps Deps, version string) *Server {
	return &Server{
		cfg:      cfg,
		deps:     deps,
		validate: newValidator(),
		version:  version,
	}
}

func (s *Server) defaultSession(id string) string {
	if id != "" {
		return id
	}
	if s.cfg.Session.DefaultID != "" {
		return s.cfg.Session.DefaultID
	}
	return "default"
}

// Handler returns the routed handler wrapped in the CORS and request logging
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	mux.HandleFunc("POST /api/create-event", s.handleCreateEvent)
	mux.HandleFunc("POST /api/update-event", s.handleUpdateEvent)
	mux.HandleFunc("POST /api/delete-event", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/geolocation", s.handleGeolocation)

	mux.HandleFunc("POST /api/create-order", s.handleCreateOrder)
	mux.HandleFunc("POST /api/create-order-advanced", s.handleCreateOrderAdvanced)
	mux.HandleFunc("POST /api/optimize-schedule", s.handleOptimizeSchedule)

	if s.cfg.MCP.Enabled && s.deps.Tools != nil {
		path := s.cfg.MCP.Path
		if path == "" {
			path = "/mcp"
		}
		mux.Handle(path, NewMCPHandler(s.deps.Tools, s.version))
		logger.L.Info("MCP endpoint enabled", "path", path)
	}
	if s.cfg.Server.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.Server.StaticDir)))
	}

	return withRequestID(withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
