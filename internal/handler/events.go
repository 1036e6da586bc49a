package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
)

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventCreate) {
		return
	}
	var req model.CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.Events.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// ListEvents handles GET /events
// Callers that cannot edit events only see published ones.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventRead) {
		return
	}
	events, err := h.svc.Events.ListEvents(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	drafts := h.authz.Can(r.Context(), access.EventUpdate)
	visible := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsPublished || drafts {
			visible = append(visible, ev)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventRead) {
		return
	}
	ev, err := h.svc.Events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ev.IsPublished && !h.authz.Can(r.Context(), access.EventUpdate) {
		h.writeServiceError(w, r, repository.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// UpdateEvent handles PATCH /events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventUpdate) {
		return
	}
	var req model.UpdateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.Events.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// PublishCheck handles GET /events/{id}/publish-check
func (h *Handler) PublishCheck(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventPublish) {
		return
	}
	v, err := h.svc.Events.CheckPublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PublishEvent handles POST /events/{id}/publish
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventPublish) {
		return
	}
	ev, err := h.svc.Events.PublishEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// CancelEvent handles POST /events/{id}/cancel
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventCancel) {
		return
	}
	ev, err := h.svc.Events.CancelEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// EventStats handles GET /events/{id}/stats
func (h *Handler) EventStats(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.EventStats) {
		return
	}
	stats, err := h.svc.Events.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
