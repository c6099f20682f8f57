package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/trajector/portal/internal/auth"
	"github.com/trajector/portal/internal/guard"
	"github.com/trajector/portal/internal/middleware"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/store"
)

type sessionWriter interface {
	Save(ctx context.Context, sess model.Session) error
	Clear(ctx context.Context) error
}

type loginPageData struct {
	Email string
	Error string
}

const msgMissingCredentials = "Please enter both email and password"

// AuthHandler signs visitors in and out of the single session slot.
type AuthHandler struct {
	BaseHandler
	resolver *auth.Resolver
	sessions sessionWriter
}

func NewAuthHandler(base BaseHandler, resolver *auth.Resolver, sessions sessionWriter) *AuthHandler {
	return &AuthHandler{BaseHandler: base, resolver: resolver, sessions: sessions}
}

// Landing sends the visitor to the view their session allows.
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.Landing(middleware.SessionFromContext(r.Context())), http.StatusSeeOther)
}

// LoginPage renders the login form, also for signed-in visitors the guard
// turned away from a view their role does not allow.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", "Sign in", loginPageData{})
}

// Login assigns a role from the submitted email and persists the session.
// The password is required but never checked.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")

	sess, err := h.resolver.Login(email, password)
	if errors.Is(err, auth.ErrMissingCredentials) {
		h.render(w, r, http.StatusUnprocessableEntity, "login.html", "Sign in", loginPageData{Email: email, Error: msgMissingCredentials})
		return
	}

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		if !errors.Is(err, store.ErrNotPersisted) {
			h.logError(r, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.Logger.Warn("auth: session kept in memory only", "err", err)
	}

	h.Logger.Info("auth: signed in", "identity", sess.Identity, "role", sess.Role)
	http.Redirect(w, r, guard.Landing(&sess), http.StatusSeeOther)
}

// Logout clears the session and returns to the login view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		h.Logger.Warn("auth: persisted session not removed", "err", err)
	}
	if h.Notices != nil {
		h.Notices.Notify(model.NotifyInfo, "Logged out")
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
