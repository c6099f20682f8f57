package middleware

import (
	"log/slog"
	"net/http"

	"github.com/trajector/portal/internal/guard"
)

// Guard renders the wrapped view only when the session in the context meets
// req. Otherwise the visitor is redirected to the policy's target.
func Guard(policy guard.Policy, req guard.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := policy.Decide(SessionFromContext(r.Context()), req)
			if d.Render {
				next.ServeHTTP(w, r)
				return
			}
			slog.Debug("guard: redirect", "path", r.URL.Path, "requirement", req, "outcome", d.Outcome, "to", d.Redirect)
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		})
	}
}

// RequireIntake admits only intake representatives.
func RequireIntake() func(http.Handler) http.Handler {
	return Guard(guard.DefaultPolicy, guard.IntakeOnly)
}

// RequireClient admits only signed-in clients.
func RequireClient() func(http.Handler) http.Handler {
	return Guard(guard.DefaultPolicy, guard.ClientOnly)
}
