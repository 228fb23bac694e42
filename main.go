package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/audit"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/config"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/handlers"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/middleware"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/services"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/session"
	"github.com/ekaya-inc/ekaya-csvloader/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if config.IsRunningInDocker() {
		logger.Info("Running in docker, loopback postgres hosts resolve to host.docker.internal")
	}

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("postgres", fmt.Sprintf("%s@%s:%d", cfg.Postgres.User, cfg.Postgres.Host, cfg.Postgres.Port)),
		zap.String("bootstrap_database", cfg.Postgres.BootstrapDatabase),
		zap.Int64("max_upload_mb", cfg.Upload.MaxUploadMB),
	)

	server := postgres.FromServerConfig(cfg.Postgres)
	lister := postgres.NewLister(server, cfg.Postgres.BootstrapDatabase, logger)
	factory := postgres.NewFactory(server, postgres.FactoryConfig{PoolMaxConns: cfg.Postgres.PoolMaxConns}, logger)

	auditor := audit.NewSecurityAuditor(logger)
	uploadService := services.NewUploadService(lister, factory, auditor,
		services.UploadConfig{PreviewRows: cfg.Upload.PreviewRows}, logger)

	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET not set, using a random key; database selection will not survive restarts")
	}
	sessions, err := session.NewStore(session.Options{
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	tmpl, err := ui.Templates()
	if err != nil {
		return err
	}
	static, err := ui.Static()
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.ClientIP,
		middleware.RequestLogger(logger),
		chimw.Recoverer,
	)

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(r)
	handlers.NewUploadPageHandler(uploadService, sessions, tmpl,
		handlers.PageConfig{MaxUploadBytes: cfg.Upload.MaxUploadBytes()}, logger).RegisterRoutes(r)
	handlers.NewDatabasesHandler(uploadService, cfg.Upload.MaxUploadBytes(), logger).RegisterRoutes(r)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		logger.Info("Starting ekaya-csvloader", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
