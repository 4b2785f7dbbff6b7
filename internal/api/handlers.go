// Package api exposes HTTP handlers for the process map.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"example.com/processmap/internal/auth"
	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/persistence"
	"example.com/processmap/internal/session"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for unexpected errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{service: service, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/workflows", h.listWorkflows)
	mux.HandleFunc("POST /v1/workflows", h.createWorkflow)
	mux.HandleFunc("GET /v1/workflows/{id}", h.getWorkflowMap)
	mux.HandleFunc("PUT /v1/workflows/{id}", h.updateWorkflow)
	mux.HandleFunc("DELETE /v1/workflows/{id}", h.deleteWorkflow)
	mux.HandleFunc("GET /v1/workflows/{id}/activities", h.listActivities)
	mux.HandleFunc("GET /v1/workflows/{id}/swimlanes", h.listSwimlanes)
	mux.HandleFunc("PUT /v1/workflows/{id}/swimlanes", h.saveSwimlane)
	mux.HandleFunc("POST /v1/workflows/{id}/shift", h.shiftRow)

	mux.HandleFunc("POST /v1/activities", h.placeActivity)
	mux.HandleFunc("GET /v1/activities/{id}", h.getActivity)
	mux.HandleFunc("PUT /v1/activities/{id}", h.updateActivity)
	mux.HandleFunc("DELETE /v1/activities/{id}", h.deleteActivity)
	mux.HandleFunc("PUT /v1/activities/{id}/position", h.moveActivity)
	mux.HandleFunc("GET /v1/activities/{id}/audit", h.auditTrail)

	mux.HandleFunc("GET /v1/tshirt-config", h.tshirtConfig)
	mux.HandleFunc("POST /v1/session", h.applySession)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.service.ListWorkflows(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	views := make([]WorkflowView, 0, len(workflows))
	for _, wf := range workflows {
		views = append(views, toWorkflowView(wf))
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": views})
}

func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req WorkflowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workflow, err := h.service.CreateWorkflow(r.Context(), req.Name, req.Description)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkflowView(*workflow))
}

func (h *Handler) getWorkflowMap(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetWorkflowMap(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkflowMapView{
		Workflow:   toWorkflowView(m.Workflow),
		Activities: toActivityViews(m.Activities),
		Swimlanes:  toSwimlaneViews(m.Swimlanes),
	})
}

func (h *Handler) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req WorkflowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workflow, err := h.service.UpdateWorkflow(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowView(*workflow))
}

func (h *Handler) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deletion, err := h.service.DeleteWorkflow(r.Context(), id, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workflow_id":        deletion.WorkflowID,
		"activities_removed": deletion.ActivitiesRemoved,
		"swimlanes_removed":  deletion.SwimlanesRemoved,
	})
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	filter := domain.ActivityFilter{EngagementID: strings.TrimSpace(r.URL.Query().Get("engagement_id"))}
	activities, err := h.service.ListActivities(r.Context(), id, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": toActivityViews(activities)})
}

func (h *Handler) listSwimlanes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lanes, err := h.service.ListSwimlanes(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"swimlanes": toSwimlaneViews(lanes)})
}

func (h *Handler) saveSwimlane(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SwimlaneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lane, err := h.service.SaveSwimlane(r.Context(), domain.Swimlane{
		WorkflowID:   id,
		Letter:       req.Letter,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSwimlaneView(*lane))
}

func (h *Handler) shiftRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ShiftRowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := h.service.ShiftRow(r.Context(), domain.ShiftRowInput{
		WorkflowID: id,
		Row:        req.Row,
		FromColumn: req.FromColumn,
		Actor:      actor(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftView(*outcome))
}

func (h *Handler) placeActivity(w http.ResponseWriter, r *http.Request) {
	var req PlaceActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resolution, err := domain.ParseResolution(req.Resolution)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	activity, err := req.toDomain()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	activity.WorkflowID = req.WorkflowID

	result, err := h.service.PlaceActivity(r.Context(), domain.PlaceActivityInput{
		Activity:   activity,
		Resolution: resolution,
		Actor:      actor(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Cancelled {
		status = http.StatusOK
	}
	writeJSON(w, status, toPlacementView(*result))
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	changes, err := req.toDomain()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	updated, err := h.service.UpdateActivity(r.Context(), id, changes, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*updated))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), id, actor(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) moveActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MoveActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	moved, err := h.service.MoveActivity(r.Context(), id, req.GridLocation, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*moved))
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	cursor, err := persistence.DecodeCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid cursor")
		return
	}
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
	}
	entries, next, err := h.service.AuditTrail(r.Context(), id, cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditPage(entries, next))
}

func (h *Handler) tshirtConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.TshirtConfig(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTshirtConfigView(cfg))
}

func (h *Handler) applySession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	state, err := session.Decode(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ev := session.Event{
		Action:     session.Action(req.Event.Action),
		ActivityID: req.Event.ActivityID,
		Resolution: req.Event.Resolution,
	}
	if c := req.Event.Conflict; c != nil {
		ev.Conflict = &session.Conflict{
			Location:     domain.NormalizeLocation(c.Location),
			OccupantID:   c.OccupantID,
			OccupantName: c.OccupantName,
		}
	}
	next, err := session.Apply(state, ev)
	if err != nil {
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	token, err := session.Encode(next)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "state": next})
}

func actor(r *http.Request) string {
	if a, ok := auth.ActorFrom(r.Context()); ok {
		return a
	}
	return domain.DefaultActor
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// conflictOptions are the resolutions a client may retry a placement with.
var conflictOptions = []domain.Resolution{
	domain.ResolutionInsert,
	domain.ResolutionReplace,
	domain.ResolutionCancel,
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"type":          "conflict",
			"detail":        conflict.Error(),
			"grid_location": conflict.Location,
			"occupant": map[string]any{
				"id":            conflict.Occupant.ID,
				"activity_name": conflict.Occupant.Name,
			},
			"options": conflictOptions,
		})
	case errors.Is(err, domain.ErrCellOccupied):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrActivityNotFound), errors.Is(err, domain.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidGridLocation),
		errors.Is(err, domain.ErrInvalidResolution):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrWorkflowBusy):
		writeError(w, http.StatusLocked, "workflow_busy", err.Error())
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
