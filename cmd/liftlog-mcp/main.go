package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/config"
	liftlogmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/store"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "LiftLog server URL for remote mode (e.g. https://liftlog.tail1234.ts.net)")
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds liftlogmcp.DataSource

	if *serverURL != "" {
		ds = liftlogmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if cfg.Storage.Driver != "sqlite" {
			log.Error("local mode requires the sqlite driver; use -server for a postgres-backed instance")
			os.Exit(1)
		}

		kv, err := store.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			log.Error("failed to open store", "path", cfg.Storage.Path, "error", err)
			os.Exit(1)
		}
		defer kv.Close()

		catalog, err := program.Load(cfg.Program.Path)
		if err != nil {
			log.Error("failed to load program", "path", cfg.Program.Path, "error", err)
			os.Exit(1)
		}

		ds = liftlogmcp.NewLocal(kv, catalog, log)
		log.Info("local mode", "store", cfg.Storage.Path)
	}

	s := liftlogmcp.New(ds, Version, log)

	log.Info("MCP server starting on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
