// Command archidekt-mirror runs one mirror pass: it fetches a user's decks
// from Archidekt, renders them into the configured formats under a local
// directory tree, and reconciles artifacts left behind by renamed, moved, or
// deleted decks. Scheduling is left to cron or a systemd timer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
	"github.com/ramonehamilton/archidekt-mirror/internal/config"
	"github.com/ramonehamilton/archidekt-mirror/internal/journal"
	"github.com/ramonehamilton/archidekt-mirror/internal/mirror"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "archidekt-mirror: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default ~/.archidekt-mirror/config.toml)")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	interval, err := cfg.RequestInterval()
	if err != nil {
		return err
	}
	client := archidekt.NewClient(
		archidekt.WithBaseURL(cfg.API.BaseURL),
		archidekt.WithUserAgent(cfg.API.UserAgent),
		archidekt.WithRequestInterval(interval),
	)

	store, err := mirror.NewDirStore(afero.NewOsFs(), cfg.Mirror.Root)
	if err != nil {
		return err
	}

	formats, err := cfg.Formats()
	if err != nil {
		return err
	}

	engine := mirror.NewEngine(client, store, mirror.Options{
		UserID:         cfg.Mirror.UserID,
		WatchedFolders: cfg.Mirror.Folders,
		Formats:        formats,
		BackupAll:      cfg.Mirror.BackupAll,
		DeleteStale:    cfg.Mirror.DeleteStale,
	}, logger)

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path); err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
	}

	ctx := context.Background()
	started := time.Now()

	stats, runErr := engine.Run(ctx)

	if j != nil {
		record := journal.Run{
			StartedAt:  started,
			FinishedAt: time.Now(),
			Status:     "ok",
		}
		if stats != nil {
			record.Decks = stats.Decks
			record.Writes = stats.Writes
			record.Unchanged = stats.Unchanged
			record.Stale = stats.Stale
		}
		if runErr != nil {
			record.Status = "failed"
			record.Error = runErr.Error()
		}
		if _, err := j.Record(ctx, record); err != nil {
			logger.Error("failed to record run in journal", "error", err)
		}

		retention, err := cfg.JournalRetention()
		if err == nil {
			if pruned, err := j.Prune(ctx, retention); err != nil {
				logger.Error("failed to prune journal", "error", err)
			} else if pruned > 0 {
				logger.Debug("pruned journal rows", "count", pruned)
			}
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("mirror run complete",
		"decks", stats.Decks,
		"writes", stats.Writes,
		"unchanged", stats.Unchanged,
		"stale", stats.Stale,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	return nil
}
