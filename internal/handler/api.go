package handler

import (
	"net/http"

	"github.com/trajector/portal/internal/middleware"
	"github.com/trajector/portal/internal/model"
)

// APIHandler exposes session and notification state as JSON.
type APIHandler struct {
	BaseHandler
}

func NewAPIHandler(base BaseHandler) *APIHandler {
	return &APIHandler{BaseHandler: base}
}

// Notifications drains pending notifications.
func (h *APIHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	items := h.Notices.Drain()
	if items == nil {
		items = []model.Notification{}
	}
	if err := h.writeJSON(w, http.StatusOK, envelope{"notifications": items}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Session returns the current session, or null.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	if err := h.writeJSON(w, http.StatusOK, envelope{"session": middleware.SessionFromContext(r.Context())}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
