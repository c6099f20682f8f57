package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/trajector/portal/internal/guard"
	"github.com/trajector/portal/internal/magiclink"
)

type requestDispatcher interface {
	Dispatch(ctx context.Context, r magiclink.Request) error
}

type intakePageData struct {
	Methods []magiclink.Method
}

// IntakeHandler serves the intake representative dashboard.
type IntakeHandler struct {
	BaseHandler
	dispatcher requestDispatcher
}

func NewIntakeHandler(base BaseHandler, d requestDispatcher) *IntakeHandler {
	return &IntakeHandler{BaseHandler: base, dispatcher: d}
}

func (h *IntakeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin.html", "Intake dashboard", intakePageData{
		Methods: []magiclink.Method{magiclink.MethodEmail, magiclink.MethodMagicLink},
	})
}

// SendRequest asks a client for documents. The outcome is reported as a
// notification on the dashboard.
func (h *IntakeHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	req := magiclink.Request{
		ClientName:  r.FormValue("client_name"),
		ClientEmail: r.FormValue("client_email"),
		ClientPhone: r.FormValue("client_phone"),
		Method:      magiclink.Method(r.FormValue("method")),
		Note:        r.FormValue("message"),
	}

	err := h.dispatcher.Dispatch(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, magiclink.ErrMissingFields),
		errors.Is(err, magiclink.ErrNoPhone),
		errors.Is(err, magiclink.ErrUnknownMethod):
		h.Logger.Debug("intake: request rejected", "err", err)
	default:
		h.Logger.Error("intake: dispatch failed", "err", err)
	}

	http.Redirect(w, r, guard.AdminPath, http.StatusSeeOther)
}
