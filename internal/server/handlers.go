package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/comigor/calendar-agent/internal/agent"
	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/geo"
	"github.com/comigor/calendar-agent/internal/logger"
	"github.com/comigor/calendar-agent/internal/planner"
	"github.com/comigor/calendar-agent/internal/weather"
)

const chatFailure = "Chyba pri spracovaní správy"

type chatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}

	res, err := s.deps.Chat.HandleTurn(r.Context(), s.defaultSession(req.SessionID), req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, agent.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
	case errors.Is(err, agent.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": chatFailure, "details": err.Error()})
	default:
		logger.L.Error("chat error", "request_id", RequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": chatFailure, "details": err.Error()})
	}
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.deps.Chat.Reset(r.Context(), s.defaultSession(req.SessionID)); err != nil {
		logger.L.Error("reset error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"openai":   s.cfg.LLM.APIKey != "",
		"calendar": s.cfg.Calendar.ScriptURL != "",
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Calendar.Events(r.Context(), calendar.EventQuery{MaxResults: 20})
	if err != nil {
		logger.L.Error("events error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := s.deps.Calendar.Calendars(r.Context())
	if err != nil {
		logger.L.Error("calendars error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cals == nil {
		cals = []calendar.Calendar{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "calendars": cals})
}

type eventRequest struct {
	EventID     string              `json:"eventId"`
	CalendarID  string              `json:"calendarId"`
	Summary     string              `json:"summary"`
	Description string              `json:"description"`
	Start       *calendar.EventTime `json:"start"`
	End         *calendar.EventTime `json:"end"`
	Location    string              `json:"location"`
}

type eventRef struct {
	EventID    string `json:"eventId" validate:"required"`
	CalendarID string `json:"calendarId"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if id := r.URL.Query().Get("calendarId"); id != "" {
		req.CalendarID = id
	}
	in := calendar.EventInput{Summary: req.Summary, Description: req.Description, Location: req.Location}
	if req.Start != nil {
		in.Start = *req.Start
	}
	if req.End != nil {
		in.End = *req.End
	}
	res, err := s.deps.Calendar.CreateEvent(r.Context(), req.CalendarID, in)
	if err != nil {
		logger.L.Error("create event error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(eventRef{EventID: req.EventID}); err != nil {
		writeFailure(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	res, err := s.deps.Calendar.UpdateEvent(r.Context(), req.EventID, req.CalendarID, calendar.EventPatch{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
	})
	if err != nil {
		logger.L.Error("update event error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRef
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeFailure(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	res, err := s.deps.Calendar.DeleteEvent(r.Context(), req.EventID, req.CalendarID)
	if err != nil {
		logger.L.Error("delete event error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseCoord(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query weather.Query
	if d := q.Get("days"); d != "" {
		days, err := strconv.Atoi(d)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, fmt.Sprintf("invalid days %q", d))
			return
		}
		query.Days = days
	}
	lat, errLat := parseCoord(q.Get("lat"))
	lon, errLon := parseCoord(q.Get("lon"))
	if errLat != nil || errLon != nil {
		writeFailure(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	query.Lat, query.Lon = lat, lon

	report, err := s.deps.Weather.Report(r.Context(), query)
	if err != nil {
		logger.L.Error("weather error", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGeolocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Geo.Locate(r.Context(), geo.ClientIP(r)))
}

type timeline struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	TotalHours float64 `json:"totalHours"`
}

type orderResponse struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message"`
	Created       int                 `json:"created"`
	Errors        int                 `json:"errors"`
	ErrorMessages []string            `json:"errorMessages"`
	Events        []planner.Scheduled `json:"events"`
	Timeline      timeline            `json:"timeline"`
}

func newOrderResponse(p *planner.Plan) orderResponse {
	return orderResponse{
		Success:       true,
		Message:       p.Message,
		Created:       len(p.Created),
		Errors:        len(p.Errors),
		ErrorMessages: p.Errors,
		Events:        p.Created,
		Timeline: timeline{
			Start:      p.Start.Format(time.RFC3339),
			End:        p.End.Format(time.RFC3339),
			TotalHours: p.TotalHours,
		},
	}
}

func orderStatus(err error) int {
	if errors.Is(err, planner.ErrInvalidOrder) || errors.Is(err, planner.ErrNoTasks) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// orderError returns the user-facing message: the sentinel text for known
// failures, the raw error otherwise.
func orderError(err error) string {
	for _, sentinel := range []error{planner.ErrInvalidOrder, planner.ErrNoTasks, planner.ErrCalendarsUnavailable} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request, run func(planner.Order) (*planner.Plan, error)) {
	var o planner.Order
	if err := decode(w, r, &o); err != nil {
		writeOrderFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := run(o)
	if err != nil {
		logger.L.Error("create order error", "order", o.Name, "error", err)
		writeOrderFailure(w, orderStatus(err), orderError(err))
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(plan))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	s.schedule(w, r, func(o planner.Order) (*planner.Plan, error) {
		return s.deps.Planner.Backward(r.Context(), o)
	})
}

func (s *Server) handleCreateOrderAdvanced(w http.ResponseWriter, r *http.Request) {
	s.schedule(w, r, func(o planner.Order) (*planner.Plan, error) {
		return s.deps.Planner.Forward(r.Context(), o)
	})
}

type optimizeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*planner.Optimization
}

func (s *Server) handleOptimizeSchedule(w http.ResponseWriter, r *http.Request) {
	var req planner.OptimizeRequest
	if err := decode(w, r, &req); err != nil {
		writeOrderFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.deps.Planner.Optimize(r.Context(), req)
	if err != nil {
		logger.L.Error("optimize schedule error", "error", err)
		writeOrderFailure(w, orderStatus(err), orderError(err))
		return
	}
	writeJSON(w, http.StatusOK, optimizeResponse{
		Success:      true,
		Message:      fmt.Sprintf("AI optimalizovala %d procesov. %s", len(req.Tasks), out.AIReasoning),
		Optimization: out,
	})
}
