package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/trajector/portal/internal/guard"
	"github.com/trajector/portal/internal/handler"
	"github.com/trajector/portal/internal/middleware"
	"github.com/trajector/portal/internal/web"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(app.config.IsProduction()))
	r.Use(middleware.Session(app.sessions))

	base := handler.BaseHandler{Logger: app.logger, Templates: web.Templates, Notices: app.notices}
	limit := middleware.PerMinute(app.config.RateLimitPerMinute)

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS)))

	api := handler.NewAPIHandler(base)
	r.Get("/api/health", handler.Health(app.healthChecks()))
	r.Get("/api/session", api.Session)
	r.Get("/api/notifications", api.Notifications)

	authHandler := handler.NewAuthHandler(base, app.resolver, app.sessions)
	r.Get("/", authHandler.Landing)
	r.Get(guard.LoginPath, authHandler.LoginPage)
	r.With(limit).Post(guard.LoginPath, authHandler.Login)
	r.With(middleware.Guard(guard.DefaultPolicy, guard.Any)).Post("/logout", authHandler.Logout)

	// Deep-link upload, reachable without signing in
	deep := handler.NewUploadHandler(base, app.deepUploads, app.spooler, handler.UploadView{
		BasePath: guard.UploadPath,
		Deep:     true,
		Defaults: app.defaultIdentity(),
	})
	r.Route(guard.UploadPath, func(r chi.Router) {
		mountUpload(r, deep)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIntake())

		intake := handler.NewIntakeHandler(base, app.dispatcher)
		r.Get(guard.AdminPath, intake.Dashboard)
		r.With(limit).Post(guard.AdminPath+"/requests", intake.SendRequest)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireClient())

		client := handler.NewClientHandler(base, app.documents)
		r.Get(guard.ClientPath, client.Portal)

		uploads := handler.NewUploadHandler(base, app.clientUploads, app.spooler, handler.UploadView{
			BasePath: guard.ClientPath + "/upload",
			Defaults: app.defaultIdentity(),
		})
		r.Route(guard.ClientPath+"/upload", func(r chi.Router) {
			mountUpload(r, uploads)
		})
	})
	return r
}

func mountUpload(r chi.Router, h *handler.UploadHandler) {
	r.Get("/", h.Page)
	r.Post("/files", h.AddFiles)
	r.Post("/files/{index}/remove", h.RemoveFile)
	r.Post("/submit", h.Submit)
}

func (app *App) healthChecks() map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"storage": app.sessions}
	if app.mailer.Configured() {
		checks["mail"] = app.mailer
	}
	return checks
}
