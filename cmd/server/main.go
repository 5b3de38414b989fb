package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/attachkit/content-store/pkg/contentstore"
	"github.com/attachkit/content-store/pkg/contentstore/api"
	"github.com/attachkit/content-store/pkg/contentstore/config"
	fsstorage "github.com/attachkit/content-store/pkg/contentstore/storage/fs"
)

// ServerEnv holds the server-level settings read by cleanenv. Service
// wiring (database, storage, search) is handled by config.WithEnv.
type ServerEnv struct {
	Port            string        `env:"PORT" env-default:"8080"`
	Environment     string        `env:"ENVIRONMENT" env-default:"development"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	WatchStorage    bool          `env:"WATCH_STORAGE" env-default:"false"`
}

func main() {
	var env ServerEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	cfg.Port = env.Port
	cfg.Environment = env.Environment

	svc, err := cfg.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	// Core handlers
	resourceHandler := api.NewResourceHandler(svc)
	entityHandler := api.NewEntityHandler(svc)
	searchHandler := api.NewSearchHandler(svc)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(env.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/resources", resourceHandler.Routes())
		r.Mount("/entities", entityHandler.Routes())
		r.Mount("/search", searchHandler.Routes())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if env.WatchStorage {
		startStorageWatcher(ctx, svc, cfg)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", env.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Server starting", "port", env.Port, "environment", env.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

// startStorageWatcher logs filesystem changes under the fs backend's base
// directory. Useful in development when content is edited on disk directly.
func startStorageWatcher(ctx context.Context, svc contentstore.Service, cfg *config.ServerConfig) {
	for _, bc := range cfg.StorageBackends {
		if bc.Type != "fs" {
			continue
		}
		backend, err := svc.GetBackend(bc.Name)
		if err != nil {
			continue
		}
		fsBackend, ok := backend.(*fsstorage.Backend)
		if !ok {
			continue
		}
		changes, err := fsBackend.Watch(ctx)
		if err != nil {
			slog.Warn("Failed to watch storage directory", "backend", bc.Name, "err", err)
			continue
		}
		slog.Info("Watching storage directory", "backend", bc.Name, "base_dir", fsBackend.BaseDir())
		go func(name string) {
			for change := range changes {
				slog.Info("Storage object changed",
					"backend", name, "object_key", change.ObjectKey, "op", change.Op)
			}
		}(bc.Name)
	}
}
