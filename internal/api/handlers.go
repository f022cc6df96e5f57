package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gasroute/internal/metrics"
	"gasroute/internal/model"
	"gasroute/internal/sched"
	"gasroute/internal/store"
)

// OrdersHandler handles POST/GET /v1/orders. Records arrive pre-validated
// from the admin layer; this surface only seeds and lists them.
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Orders []model.OrderIn `json:"orders"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateOrders(r.Context(), req.Orders)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create orders failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": created, "created": len(created)})
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := queryInt(r, "limit", 100)
		items, next, err := s.Store.ListOrders(r.Context(), status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List orders failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehiclesHandler handles POST/GET /v1/vehicles.
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Vehicles []model.VehicleIn `json:"vehicles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateVehicles(r.Context(), req.Vehicles)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": created, "created": len(created)})
	case http.MethodGet:
		items, err := s.Store.ListVehicles(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DriversHandler handles POST/GET /v1/drivers.
func (s *Server) DriversHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Drivers []model.DriverIn `json:"drivers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateDrivers(r.Context(), req.Drivers)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create drivers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": created, "created": len(created)})
	case http.MethodGet:
		items, err := s.Store.ListDrivers(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List drivers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// GenerateHandler handles POST /v1/schedules/generate.
func (s *Server) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateGenerateRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid generate request", err.Error(), r.URL.Path)
		return
	}
	budget := time.Duration(req.TimeBudgetMs) * time.Millisecond
	schedule, err := s.Engine.Generate(r.Context(), req.Date, budget, req.Algorithm, req.Seed)
	if errors.Is(err, sched.ErrNoDemand) {
		// nothing to schedule is a normal outcome
		writeJSON(w, http.StatusOK, map[string]any{"date": req.Date, "schedule": nil, "message": "no pending orders for date"})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.Broker.Publish(req.Date, Event{Type: "schedule.generated", Date: req.Date, Data: map[string]any{
		"scheduleId": schedule.ID,
		"status":     schedule.Solver.Status,
		"routes":     len(schedule.Routes),
		"unassigned": len(schedule.Unassigned),
	}})
	writeJSON(w, http.StatusOK, map[string]any{"date": req.Date, "schedule": schedule})
}

// ApplyHandler handles POST /v1/schedules/apply.
func (s *Server) ApplyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Schedule             model.Schedule `json:"schedule"`
		AcknowledgeConflicts bool           `json:"acknowledgeConflicts,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.Schedule.Date == "" || len(req.Schedule.Routes) == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid apply request", "schedule with at least one route is required", r.URL.Path)
		return
	}
	res, err := s.Engine.Apply(r.Context(), req.Schedule, req.AcknowledgeConflicts)
	if err != nil {
		metrics.CommitResults.WithLabelValues("rejected").Inc()
		s.respondError(w, r, err)
		return
	}
	metrics.CommitResults.WithLabelValues("committed").Inc()
	s.Broker.Publish(res.Date, Event{Type: "schedule.applied", Date: res.Date, Data: map[string]any{
		"scheduleId": res.ScheduleID,
		"orders":     res.OrdersScheduled,
		"routes":     res.RoutesCreated,
	}})
	writeJSON(w, http.StatusOK, res)
}

// ScheduleByDateHandler handles GET /v1/schedules/{date} plus the
// /conflicts and /metrics subresources.
func (s *Server) ScheduleByDateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/schedules/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	date := parts[0]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path)
		return
	}
	switch {
	case len(parts) == 1:
		schedule, err := s.Engine.Schedule(r.Context(), date)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, schedule)
	case len(parts) == 2 && parts[1] == "conflicts":
		conflicts, err := s.Engine.Conflicts(r.Context(), date)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "conflicts": conflicts})
	case len(parts) == 2 && parts[1] == "metrics":
		m, err := s.Engine.Metrics(r.Context(), date)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondError maps engine and store errors onto problem responses.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var gateErr *sched.ConflictGateError
	var commitErr *sched.CommitConflictError
	var buildErr *sched.ModelBuildError
	var valErr *sched.ValidationError
	switch {
	case errors.As(err, &gateErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"title":     "Schedule has conflicts",
			"fatal":     gateErr.Fatal,
			"conflicts": gateErr.Conflicts,
		})
	case errors.As(err, &commitErr):
		writeProblem(w, http.StatusConflict, "Commit conflict", err.Error(), r.URL.Path)
	case errors.Is(err, sched.ErrScheduleInFlight):
		writeProblem(w, http.StatusConflict, "Schedule in flight", err.Error(), r.URL.Path)
	case errors.As(err, &buildErr), errors.As(err, &valErr):
		writeProblem(w, http.StatusUnprocessableEntity, "Cannot build schedule", err.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	default:
		s.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), r.URL.Path)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
