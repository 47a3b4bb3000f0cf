package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit (postgres only)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiftLog starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Open the key-value store
	var kv store.Store
	switch cfg.Storage.Driver {
	case "postgres":
		dsn := cfg.Storage.Database.DSN()
		if err := store.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		kv, err = store.NewPostgres(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		log.Info("database connected", "driver", "postgres")
	default:
		if *migrateOnly {
			log.Info("migrate-only: sqlite schema is created on open, exiting")
			return
		}
		kv, err = store.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			log.Error("failed to open store", "path", cfg.Storage.Path, "error", err)
			os.Exit(1)
		}
		log.Info("store opened", "driver", "sqlite", "path", cfg.Storage.Path)
	}
	defer kv.Close()

	// Load the program catalog
	catalog, err := program.Load(cfg.Program.Path)
	if err != nil {
		log.Error("failed to load program", "path", cfg.Program.Path, "error", err)
		os.Exit(1)
	}
	log.Info("program loaded", "weeks", len(catalog.Weeks()))

	hist := history.NewRepository(kv, log)
	tracker := progress.NewTracker(catalog, hist)

	engine := session.NewEngine(catalog, hist, kv, log)
	defer engine.Close()

	// Resume an interrupted session left by a previous process, if any.
	if s, err := engine.ResumeOrStart(ctx, nil); err != nil {
		log.Warn("session resume failed", "error", err)
	} else if s != nil {
		log.Info("resumed interrupted session", "week", s.Week, "day", s.DayType, "elapsed_seconds", s.ElapsedSeconds)
	}

	srv := server.New(engine, catalog, hist, tracker, kv, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
