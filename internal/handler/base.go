package handler

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/trajector/portal/internal/middleware"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/notify"
)

type envelope map[string]any

type BaseHandler struct {
	Logger    *slog.Logger
	Templates *template.Template
	Notices   *notify.Queue
}

// page is what every view template receives.
type page struct {
	Title         string
	Session       *model.Session
	Notifications []model.Notification
	Data          any
}

func (h *BaseHandler) logError(r *http.Request, err error) {
	method := r.Method
	uri := r.URL.RequestURI()

	h.Logger.Error(err.Error(), "method", method, "uri", uri)
}

// render executes a view into a buffer first so a template error never
// leaves a half-written page. Pending notifications are drained into it.
func (h *BaseHandler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	p := page{
		Title:   title,
		Session: middleware.SessionFromContext(r.Context()),
		Data:    data,
	}
	if h.Notices != nil {
		p.Notifications = h.Notices.Drain()
	}

	var buf bytes.Buffer
	if err := h.Templates.ExecuteTemplate(&buf, name, p); err != nil {
		h.logError(r, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *BaseHandler) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}

	err := h.writeJSON(w, status, env, nil)
	if err != nil {
		h.logError(r, err)
		w.WriteHeader(500)
	}
}

func (h *BaseHandler) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	h.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	for k, v := range headers {
		for _, value := range v {
			w.Header().Add(k, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)

	if err := encoder.Encode(data); err != nil {
		return err
	}

	return nil
}
