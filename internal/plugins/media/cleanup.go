package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// purgeBatchSize is how many candidates the sweep loads per query.
const purgeBatchSize = 100

// SweepResult reports what a retention sweep did.
type SweepResult struct {
	Cleaned int       `json:"cleaned"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"` // restored or gone since listing
	Cutoff  time.Time `json:"cutoff"`
}

// CleanupService purges soft-deleted assets past the retention window. It
// has no timer of its own: cmd/cleanup or the admin endpoint trigger it,
// and the deployment must not run two sweeps at once.
type CleanupService interface {
	RunSweep(ctx context.Context, retentionDays int) (SweepResult, error)
}

type cleanupService struct {
	repo      MediaRepository
	store     *FileStore
	batchSize int
	now       func() time.Time
}

// NewCleanupService creates a cleanup service.
func NewCleanupService(repo MediaRepository, store *FileStore) CleanupService {
	return &cleanupService{
		repo:      repo,
		store:     store,
		batchSize: purgeBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunSweep purges every asset soft-deleted before now minus retentionDays.
// For each candidate the row is re-checked under lock, all files are
// removed (already-absent files count as removed), then the row. A
// candidate restored after listing is skipped. A failure on one asset is
// counted and logged and the sweep moves on. Only a failure to list
// candidates, or a cancelled context between batches, is returned as an
// error.
func (s *cleanupService) RunSweep(ctx context.Context, retentionDays int) (SweepResult, error) {
	if retentionDays < 0 {
		return SweepResult{}, apperror.NewValidation("retention days must not be negative")
	}

	timer := prometheus.NewTimer(sweepDuration)
	defer timer.ObserveDuration()

	result := SweepResult{Cutoff: s.now().AddDate(0, 0, -retentionDays)}
	var cursor *PurgeCursor

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sweep interrupted: %w", err)
		}

		batch, err := s.repo.ListPurgeable(ctx, result.Cutoff, cursor, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("listing purge candidates: %w", err)
		}

		for i := range batch {
			asset := &batch[i]
			purged, err := s.purge(ctx, asset, result.Cutoff)
			if err != nil {
				result.Failed++
				sweepFailedTotal.Inc()
				slog.Warn("purge failed",
					slog.String("media_id", asset.ID),
					slog.String("key", asset.StorageKey),
					slog.Any("error", err),
				)
				continue
			}
			if !purged {
				result.Skipped++
				slog.Info("purge candidate no longer eligible", slog.String("media_id", asset.ID))
				continue
			}
			result.Cleaned++
			sweepCleanedTotal.Inc()
		}

		if len(batch) < s.batchSize {
			break
		}
		last := batch[len(batch)-1]
		cursor = &PurgeCursor{DeletedAt: *last.DeletedAt, ID: last.ID}
	}

	slog.Info("retention sweep finished",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff", result.Cutoff),
		slog.Int("cleaned", result.Cleaned),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// purge removes an asset's files and then its row, using the row as
// re-read under lock rather than the listed copy.
func (s *cleanupService) purge(ctx context.Context, asset *MediaAsset, cutoff time.Time) (bool, error) {
	return s.repo.Purge(ctx, asset.ID, cutoff, func(locked *MediaAsset) error {
		return s.store.removeAll(locked.Keys())
	})
}
