package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/apiserver/internal/audit"
	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/event"
)

type createEventRequest struct {
	Name     string    `json:"name"`
	Info     string    `json:"info"`
	Location string    `json:"location"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
}

type updateEventRequest struct {
	Name     *string    `json:"name"`
	Info     *string    `json:"info"`
	Location *string    `json:"location"`
	StartAt  *time.Time `json:"start_at"`
	EndAt    *time.Time `json:"end_at"`
}

type notifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEvents(w, r)
	case http.MethodPost:
		a.createEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermGetEvents) {
		return
	}
	q := r.URL.Query()
	var f event.Filter
	for param, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := strings.TrimSpace(q.Get(param))
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, param+" must be an RFC 3339 timestamp")
			return
		}
		*dst = &ts
	}
	switch strings.TrimSpace(q.Get("status")) {
	case "":
	case "enabled":
		status := event.StatusEnabled
		f.Status = &status
	case "disabled":
		status := event.StatusDisabled
		f.Status = &status
	default:
		writeError(w, r, http.StatusBadRequest, "status must be enabled or disabled")
		return
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	limit, err := parsePositiveInt("limit", q.Get("limit"), 20, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parsePositiveInt("page", q.Get("page"), 1, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f.Limit, f.Page = limit, page

	events, err := a.events.List(r.Context(), f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []*event.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": events,
		"page":  page,
		"limit": limit,
	})
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermManageEvents) {
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "please authenticate")
		return
	}
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := a.events.Create(r.Context(), event.CreateInput{
		Name:      req.Name,
		Info:      req.Info,
		Location:  req.Location,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		CreatedBy: userID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "event.create", map[string]any{
		"event_id": ev.ID,
		"name":     ev.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/events/%s", ev.ID))
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/events/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		a.handleEventByID(w, r, id)
	case len(parts) == 2 && parts[1] == "rsvp":
		a.handleEventRSVP(w, r, id)
	case len(parts) == 2 && parts[1] == "notify":
		a.notifyEvent(w, r, id)
	case len(parts) == 2 && (parts[1] == "enable" || parts[1] == "disable"):
		a.setEventStatus(w, r, id, parts[1])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleEventByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermGetEvents) {
			return
		}
		ev, err := a.events.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodPatch:
		if !a.ensurePermission(w, r, auth.PermManageEvents) {
			return
		}
		if !a.ensureEventOwner(w, r, id) {
			return
		}
		var req updateEventRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ev, err := a.events.Update(r.Context(), id, event.Update{
			Name:     req.Name,
			Info:     req.Info,
			Location: req.Location,
			StartAt:  req.StartAt,
			EndAt:    req.EndAt,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "event.update", map[string]any{"event_id": id})
		writeJSON(w, http.StatusOK, ev)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermManageEvents) {
			return
		}
		if !a.ensureEventOwner(w, r, id) {
			return
		}
		if err := a.events.Delete(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "event.delete", map[string]any{"event_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleEventRSVP toggles the caller's attendance. POST accepts, DELETE
// withdraws; both are idempotent.
func (a *API) handleEventRSVP(w http.ResponseWriter, r *http.Request, id string) {
	if !a.ensurePermission(w, r, auth.PermManageRSVP) {
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "please authenticate")
		return
	}
	var (
		ev  *event.Event
		err error
	)
	switch r.Method {
	case http.MethodPost:
		ev, err = a.events.AcceptRSVP(r.Context(), id, userID)
	case http.MethodDelete:
		ev, err = a.events.RejectRSVP(r.Context(), id, userID)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "event.rsvp", map[string]any{
		"event_id": id,
		"method":   r.Method,
	})
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) notifyEvent(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermission(w, r, auth.PermSendNotification) {
		return
	}
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "title and message are required")
		return
	}
	if err := a.events.SendNotification(r.Context(), id, req.Title, req.Message); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "event.notify", map[string]any{
		"event_id": id,
		"title":    req.Title,
	})
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) setEventStatus(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermission(w, r, auth.PermManageEvents) {
		return
	}
	if !a.ensureEventOwner(w, r, id) {
		return
	}
	status := event.StatusEnabled
	if action == "disable" {
		status = event.StatusDisabled
	}
	ev, err := a.events.SetStatus(r.Context(), id, status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "event."+action, map[string]any{"event_id": id})
	writeJSON(w, http.StatusOK, ev)
}
