package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to history export JSON (required)")
	overwrite := flag.Bool("overwrite", false, "overwrite records that already exist")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -config config.yaml -path export.json [-overwrite] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Parse the export file: record key -> record, the same shape the
	// store holds under the history key.
	data, err := os.ReadFile(*exportPath)
	if err != nil {
		log.Error("failed to read export file", "path", *exportPath, "error", err)
		os.Exit(1)
	}
	var records map[string]history.Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Error("failed to parse export file", "path", *exportPath, "error", err)
		os.Exit(1)
	}
	log.Info("export parsed", "records", len(records))

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
		kv, err = store.NewPostgres(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
	default:
		kv, err = store.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			log.Error("failed to open store", "path", cfg.Storage.Path, "error", err)
			os.Exit(1)
		}
	}
	defer kv.Close()

	repo := history.NewRepository(kv, log)

	if *dryRun {
		log.Info("DRY RUN mode — no records will be written")
		added, skipped, err := previewImport(ctx, repo, records, *overwrite)
		if err != nil {
			log.Error("dry run failed", "error", err)
			os.Exit(1)
		}
		log.Info("import preview", "would_add", added, "would_skip", skipped)
		return
	}

	added, skipped, err := repo.Import(ctx, records, *overwrite)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete", "added", added, "skipped", skipped)
}

// previewImport computes what Import would do without writing.
func previewImport(ctx context.Context, repo *history.Repository, records map[string]history.Record, overwrite bool) (added, skipped int, err error) {
	for key := range records {
		_, exists, err := repo.Get(ctx, key)
		if err != nil {
			return 0, 0, err
		}
		if exists && !overwrite {
			skipped++
			continue
		}
		added++
	}
	return added, skipped, nil
}
