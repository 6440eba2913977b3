// Command cleanup runs one media retention sweep and exits. It is meant to
// be scheduled by cron or the orchestrator; only one sweep may run at a
// time.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyxmakerx/folio/internal/config"
	"github.com/keyxmakerx/folio/internal/database"
	"github.com/keyxmakerx/folio/internal/plugins/audit"
	"github.com/keyxmakerx/folio/internal/plugins/media"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	retentionDays := flag.Int("retention-days", cfg.Media.RetentionDays,
		"purge assets soft-deleted more than this many days ago")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	store, err := media.NewFileStore(cfg.Media.UploadsPath)
	if err != nil {
		slog.Error("failed to open media store", slog.Any("error", err))
		os.Exit(1)
	}

	sweeper := media.NewCleanupService(media.NewMediaRepository(db), store)
	result, err := sweeper.RunSweep(ctx, *retentionDays)
	if err != nil {
		// Per-asset failures are only counted; this means candidates could
		// not be listed at all.
		slog.Error("sweep failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Record scheduled sweeps alongside the ones triggered from the admin API.
	if err := audit.NewAuditService(audit.NewAuditRepository(db)).Log(ctx, &audit.Entry{
		Action:       audit.ActionMediaSwept,
		ResourceType: audit.ResourceMedia,
		Details: map[string]any{
			"cleaned":        result.Cleaned,
			"failed":         result.Failed,
			"skipped":        result.Skipped,
			"retention_days": *retentionDays,
			"trigger":        "cmd/cleanup",
		},
	}); err != nil {
		slog.Warn("failed to record sweep in audit log", slog.Any("error", err))
	}

	slog.Info("sweep finished",
		slog.Int("cleaned", result.Cleaned),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Time("cutoff", result.Cutoff),
		slog.Int("retention_days", *retentionDays),
	)
}
