// Package main provides the entry point for the block prediction game daemon.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arukh89/bitcoin-block/internal/api"
	"github.com/arukh89/bitcoin-block/internal/config"
	dbpkg "github.com/arukh89/bitcoin-block/internal/db"
	"github.com/arukh89/bitcoin-block/internal/game"
	"github.com/arukh89/bitcoin-block/internal/hub"
	"github.com/arukh89/bitcoin-block/internal/logger"
	"github.com/arukh89/bitcoin-block/internal/oracle"
	"github.com/arukh89/bitcoin-block/internal/store"
	"github.com/arukh89/bitcoin-block/internal/watcher"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()
	log := logger.New(cfg.Debug, os.Stderr)
	log.Infof("game daemon starting: %s", cfg.DebugString())

	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	var st store.Store
	if gormDB != nil {
		if err := dbpkg.AutoMigrate(gormDB); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Info("DB connected, migrations applied")
		st = store.NewGormStore(gormDB)
	} else {
		log.Warn("DATABASE_URL not provided, running on in-memory store")
		st = store.NewMemoryStore()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	blocks := oracle.NewClient(cfg.OracleURL, cfg.OracleTimeout)
	liveSync := hub.New(log)
	svc := game.NewService(st, blocks, liveSync, log)

	// The watcher owns automatic round closing; it keeps running with zero
	// viewers connected and picks up an already-open round after a restart.
	go watcher.New(svc, blocks, cfg.PollInterval, log).Run(ctx)

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
	}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(svc, blocks, liveSync, cfg.AdminToken, cfg.CORSOrigins, log).Handler(),
	}
	go func() {
		log.Infof("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	liveSync.Close()
}
