package middleware

import (
	"context"
	"net/http"

	"github.com/trajector/portal/internal/model"
)

type contextKey string

const contextKeySession contextKey = "session"

// SessionReader returns the current session, or nil when signed out.
type SessionReader interface {
	Current() *model.Session
}

// Session places the current session (possibly nil) in the request context.
func Session(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithSession(r.Context(), sessions.Current())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// SessionFromContext returns the session stored by Session, or nil.
func SessionFromContext(ctx context.Context) *model.Session {
	v, _ := ctx.Value(contextKeySession).(*model.Session)
	return v
}
