package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trajector/portal/internal/auth"
	"github.com/trajector/portal/internal/config"
	"github.com/trajector/portal/internal/crypto"
	"github.com/trajector/portal/internal/documents"
	"github.com/trajector/portal/internal/events"
	"github.com/trajector/portal/internal/magiclink"
	"github.com/trajector/portal/internal/mailer"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/notify"
	"github.com/trajector/portal/internal/store"
	"github.com/trajector/portal/internal/upload"
)

type App struct {
	config     *config.Config
	logger     *slog.Logger
	slot       store.Slot
	sessions   *store.SessionStore
	resolver   *auth.Resolver
	notices    *notify.Queue
	documents  *documents.Client
	dispatcher *magiclink.Dispatcher
	events     events.Publisher
	mailer     *mailer.Mailer
	spooler    *upload.Spooler
	// one buffer per staging widget
	clientUploads *upload.Buffer
	deepUploads   *upload.Buffer
}

func (app *App) Close() {
	if c, ok := app.slot.(io.Closer); ok {
		if err := c.Close(); err != nil {
			app.logger.Warn("close session storage", "err", err)
		}
	}
	if err := app.events.Close(); err != nil {
		app.logger.Warn("close event publisher", "err", err)
	}
}

func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return build(context.Background(), cfg, newLogger(cfg))
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	slot, err := openSlot(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	var opts []store.SessionOption
	if cfg.SessionSealKey != "" {
		sealer, err := crypto.FromPassphrase(cfg.SessionSealKey)
		if err != nil {
			return nil, fmt.Errorf("session sealer: %w", err)
		}
		opts = append(opts, store.WithSealer(sealer))
	}
	sessions := store.NewSessionStore(slot, opts...)
	if s := sessions.Load(ctx); s != nil {
		logger.Info("restored session", "identity", s.Identity, "role", s.Role)
	}

	var clientOpts []documents.Option
	for k, v := range cfg.APIHeaders {
		clientOpts = append(clientOpts, documents.WithHeader(k, v))
	}
	docs := documents.NewClient(cfg.APIHost, clientOpts...)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	m := mailer.New(&mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		FromName:    cfg.SMTPFromName,
		FromAddress: cfg.SMTPFromEmail,
	})
	if !m.Configured() {
		logger.Warn("SMTP_HOST not set, upload request emails will only be logged")
	}

	var spoolOpts []upload.SpoolOption
	if cfg.StripMetadata {
		spoolOpts = append(spoolOpts, upload.WithMetadataStripping())
	}
	spooler, err := upload.NewSpooler(cfg.StagingDir, spoolOpts...)
	if err != nil {
		return nil, err
	}

	notices := notify.NewQueue(20)
	submitter := upload.NewSubmitter(docs, notices, publisher)
	bufOpts := upload.Options{
		StrictAccept:     cfg.StrictAccept,
		ExclusiveSubmit:  cfg.ExclusiveSubmit,
		RestoreOnFailure: cfg.RestoreOnFailure,
	}

	return &App{
		config:        cfg,
		logger:        logger,
		slot:          slot,
		sessions:      sessions,
		resolver:      auth.NewResolver(cfg.IntakeMarker),
		notices:       notices,
		documents:     docs,
		dispatcher:    magiclink.NewDispatcher(cfg.PublicBaseURL, docs, m, notices, publisher),
		events:        publisher,
		mailer:        m,
		spooler:       spooler,
		clientUploads: upload.NewBuffer(submitter, bufOpts),
		deepUploads:   upload.NewBuffer(submitter, bufOpts),
	}, nil
}

func (app *App) defaultIdentity() model.Identity {
	return model.Identity{Name: app.config.DefaultName, Phone: app.config.DefaultPhone}
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", app.config.Port),
		Handler:     app.routes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 30 * time.Second,
		// uploads stream large bodies in
		WriteTimeout: 60 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "storage", app.config.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

func openSlot(ctx context.Context, cfg *config.Config) (store.Slot, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.DatabaseURL)
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		return store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "portal:",
		})
	case "memory":
		return store.NewMemorySlot(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
