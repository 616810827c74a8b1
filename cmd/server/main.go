/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration (env vars, optional CONFIG_PATH yaml)
  2. Set up the logger for the environment
  3. Open the record store (sqlite or flatfile, per config)
  4. Seed default users on first start
  5. Start the HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the store, exit.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShuVe1/site-agreement/api"
	"github.com/ShuVe1/site-agreement/config"
	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/lib/sl"
	"github.com/ShuVe1/site-agreement/store"
	"github.com/ShuVe1/site-agreement/store/flatfile"
	"github.com/ShuVe1/site-agreement/store/sqlite"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	st, err := openStore(cfg.Storage)
	if err != nil {
		// Storage initialization failure is fatal to session start.
		log.Error("failed to initialize store", sl.Err(err))
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if err := api.EnsureDefaultUsers(ctx, st, log); err != nil {
		log.Error("failed to seed default users", sl.Err(err))
		os.Exit(1)
	}

	sessions := api.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
	handler := api.NewHandler(st, sessions, log)
	handler.Schedule = ledger.ScheduleOptions{
		Divisor:       cfg.Schedule.Divisor,
		DivideByCount: cfg.Schedule.DivideByCount,
	}
	if handler.QuarterMode, err = ledger.ParseQuarterMode(cfg.Reports.QuarterMode); err != nil {
		log.Error("bad reports configuration", sl.Err(err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server starting",
			slog.String("address", cfg.HTTPServer.Address),
			slog.String("driver", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", sl.Err(err))
	}
	log.Info("server stopped")
}

func openStore(cfg config.Storage) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(cfg.Path)
	case "flatfile":
		return flatfile.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
