/*
handlers.go - HTTP API handlers for the schedule engine

PURPOSE:
  Exposes the event/recurrence engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.
  Every route is scoped by user ID: the storage namespace key is always
  explicit, never ambient.

ENDPOINTS:
  POST   /api/users/{userID}/events                               Create event
  DELETE /api/users/{userID}/events/{eventID}                     Delete whole event
  DELETE /api/users/{userID}/events/{eventID}/instances           Delete one instance (?start=)
  DELETE /api/users/{userID}/events/{eventID}/instances/future    Delete instance and future (?start=)
  PUT    /api/users/{userID}/events/{eventID}/instances/continue  Update continue marker
  GET    /api/users/{userID}/upcoming                             Upcoming instances (?from=&max=)
  GET    /api/users/{userID}/calendar/{year}/{month}              Instances for a month
  GET    /api/users/{userID}/export                               Raw storage snapshot

ERROR HANDLING:
  - 400: Malformed body, unknown repeat type, bad timestamps
  - 404: Missing export namespace
  - 409: Duplicate event ID
  - 500: Storage failures
  Deletes and flag updates on rows that do not exist succeed with zero
  effect; queries on unknown users return empty lists.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

// Handler holds the engine behind the HTTP surface.
type Handler struct {
	Engine *schedule.Scheduler
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *schedule.Scheduler) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// CreateEvent creates an event with its materialized instances.
// POST /api/users/{userID}/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Instances) == 0 {
		writeError(w, http.StatusBadRequest, "Event requires a seed instance", schedule.ErrNoSeedInstance)
		return
	}

	rule, err := fromRuleDTO(req.Repeat)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid repeat rule", err)
		return
	}

	seeds := make([]schedule.Instance, 0, len(req.Instances))
	for _, dto := range req.Instances {
		seed, err := parseSeed(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid seed instance", err)
			return
		}
		seeds = append(seeds, seed)
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	ev := schedule.Event{
		ID:          eventID,
		Title:       req.Title,
		Description: req.Description,
		Repeat:      rule,
	}

	if err := h.Engine.CreateEvent(r.Context(), userID, ev, seeds); err != nil {
		switch {
		case errors.Is(err, schedule.ErrEventExists):
			writeError(w, http.StatusConflict, "Event already exists", err)
		case errors.Is(err, schedule.ErrInvalidInstance):
			writeError(w, http.StatusBadRequest, "Invalid seed instance", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create event", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, CreateEventResponse{Success: true, EventID: eventID})
}

// DeleteEvent removes an event and all its instances.
// DELETE /api/users/{userID}/events/{eventID}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	eventID := chi.URLParam(r, "eventID")

	if err := h.Engine.DeleteEvent(r.Context(), userID, eventID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete event", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DeleteInstance removes one instance, collapsing to a whole-event
// delete when it is the last one.
// DELETE /api/users/{userID}/events/{eventID}/instances?start=...
func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	eventID := chi.URLParam(r, "eventID")

	start, err := requireTimeParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start parameter", err)
		return
	}

	if err := h.Engine.DeleteInstance(r.Context(), userID, eventID, start); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete instance", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DeleteFutureInstances removes the instance at start and all later
// ones, collapsing to a whole-event delete when nothing would remain.
// DELETE /api/users/{userID}/events/{eventID}/instances/future?start=...
func (h *Handler) DeleteFutureInstances(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	eventID := chi.URLParam(r, "eventID")

	start, err := requireTimeParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start parameter", err)
		return
	}

	if err := h.Engine.DeleteFutureInstances(r.Context(), userID, eventID, start); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete instances", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// UpdateInstanceContinue sets the continuation marker on an instance.
// PUT /api/users/{userID}/events/{eventID}/instances/continue
func (h *Handler) UpdateInstanceContinue(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	eventID := chi.URLParam(r, "eventID")

	var req UpdateContinueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start timestamp", err)
		return
	}

	if err := h.Engine.SetInstanceContinue(r.Context(), userID, eventID, start, boolToFlag(req.Continue)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update continue flag", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// Upcoming returns the next instances from a given time.
// GET /api/users/{userID}/upcoming?from=...&max=...
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	from := time.Now().UTC()
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from parameter", err)
			return
		}
		from = t
	}

	limit := schedule.DefaultUpcomingLimit
	if s := r.URL.Query().Get("max"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid max parameter", err)
			return
		}
		limit = n
	}

	rows, err := h.Engine.Upcoming(r.Context(), userID, from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query upcoming instances", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstanceDTOs(rows))
}

// Month returns all instances overlapping a month.
// GET /api/users/{userID}/calendar/{year}/{month}
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (use 1-12)", err)
		return
	}

	rows, err := h.Engine.ForMonth(r.Context(), userID, year, time.Month(month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query month instances", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstanceDTOs(rows))
}

// Export streams the user's raw storage snapshot.
// GET /api/users/{userID}/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	data, err := h.Engine.ExportRaw(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export storage", err)
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "No storage for user", nil)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.db"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseSeed(dto InstanceSeedDTO) (schedule.Instance, error) {
	start, err := time.Parse(time.RFC3339, dto.Start)
	if err != nil {
		return schedule.Instance{}, err
	}
	end, err := time.Parse(time.RFC3339, dto.End)
	if err != nil {
		return schedule.Instance{}, err
	}
	return schedule.Instance{
		Start:    start.UTC(),
		End:      end.UTC(),
		Continue: boolToFlag(dto.Continue),
	}, nil
}

func requireTimeParam(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, errors.New("missing " + name + " parameter")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func toInstanceDTOs(rows []schedule.EventInstance) []InstanceDTO {
	dtos := make([]InstanceDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toInstanceDTO(row)
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
