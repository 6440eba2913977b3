package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// MediaService handles business logic for the media library.
type MediaService interface {
	Upload(ctx context.Context, input UploadInput) (*MediaAsset, error)

	// GetByID returns an asset whether or not it is soft-deleted.
	GetByID(ctx context.Context, id string) (*MediaAsset, error)

	// GetActive returns an asset only while it is not soft-deleted.
	GetActive(ctx context.Context, id string) (*MediaAsset, error)

	List(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error)
	UpdateAltText(ctx context.Context, id, altText string) (*MediaAsset, error)
	SoftDelete(ctx context.Context, id string) (*MediaAsset, error)
	Restore(ctx context.Context, id string) (*MediaAsset, error)
	PermanentDelete(ctx context.Context, id string) error
	Resolve(asset *MediaAsset, dc DisplayContext) Rendition
	FilePath(key string) (string, error)
	Stats(ctx context.Context) (*StorageStats, error)
}

// mediaService implements MediaService.
type mediaService struct {
	repo      MediaRepository
	store     *FileStore
	generator *VariantGenerator
	maxSize   int64
	retention time.Duration
	now       func() time.Time
}

// NewMediaService creates a new media service. retentionDays bounds how
// long a soft-deleted asset can still be restored.
func NewMediaService(repo MediaRepository, store *FileStore, generator *VariantGenerator, maxSize int64, retentionDays int) MediaService {
	return &mediaService{
		repo:      repo,
		store:     store,
		generator: generator,
		maxSize:   maxSize,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload validates, stores, and records a new media asset. Order matters:
// nothing touches disk until validation passes, and if the row cannot be
// inserted every file written for it is removed again.
func (s *mediaService) Upload(ctx context.Context, input UploadInput) (*MediaAsset, error) {
	if s.maxSize > 0 && int64(len(input.Data)) > s.maxSize {
		uploadRejectionsTotal.WithLabelValues("too_large").Inc()
		return nil, apperror.NewTooLarge(fmt.Sprintf("file too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}

	kind, err := ValidateUpload(input.MimeType, input.Data)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			uploadRejectionsTotal.WithLabelValues(appErr.Type).Inc()
		}
		return nil, err
	}
	mimeType := normalizeMIME(input.MimeType)

	now := s.now()
	key, err := NewStorageKeyWithDefault(input.Filename, extensionFor[mimeType], now)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("deriving storage key: %w", err))
	}

	if err := s.store.Write(key, input.Data); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing original: %w", err))
	}

	asset := &MediaAsset{
		ID:         uuid.NewString(),
		Filename:   input.Filename,
		MimeType:   mimeType,
		Kind:       kind,
		Size:       int64(len(input.Data)),
		StorageKey: key,
		AltText:    strings.TrimSpace(input.AltText),
		CreatedAt:  now,
	}

	if kind.HasVariants() && s.generator != nil {
		s.attachVariants(ctx, asset)
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		if rmErr := s.store.removeAll(asset.Keys()); rmErr != nil {
			slog.Warn("cleaning up files after failed insert",
				slog.String("key", key),
				slog.Any("error", rmErr),
			)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("saving media record: %w", err))
	}

	uploadsTotal.WithLabelValues(kind.String()).Inc()
	slog.Info("media uploaded",
		slog.String("id", asset.ID),
		slog.String("key", key),
		slog.String("mime_type", mimeType),
		slog.Int64("size", asset.Size),
		slog.Int("variants", len(asset.Variants.All())),
	)
	return asset, nil
}

// attachVariants records original dimensions and renditions on the asset.
// An undecodable raster is kept without dimensions or variants.
func (s *mediaService) attachVariants(ctx context.Context, asset *MediaAsset) {
	path, err := s.store.Path(asset.StorageKey)
	if err == nil {
		var res GenerateResult
		res, err = s.generator.Generate(ctx, path, asset.StorageKey)
		if err == nil {
			asset.Width = &res.Width
			asset.Height = &res.Height
			asset.Variants = res.Variants
			return
		}
	}
	slog.Warn("raster upload could not be decoded, storing without variants",
		slog.String("media_id", asset.ID),
		slog.String("key", asset.StorageKey),
		slog.Any("error", err),
	)
}

// GetByID retrieves an asset by id.
func (s *mediaService) GetByID(ctx context.Context, id string) (*MediaAsset, error) {
	return s.repo.FindByID(ctx, id)
}

// GetActive hides soft-deleted assets behind a 404.
func (s *mediaService) GetActive(ctx context.Context, id string) (*MediaAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.IsDeleted() {
		return nil, apperror.NewNotFound("media asset not found")
	}
	return asset, nil
}

// List returns one page of assets.
func (s *mediaService) List(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error) {
	return s.repo.List(ctx, opts.normalize())
}

// UpdateAltText changes the alt text, the only mutable field.
func (s *mediaService) UpdateAltText(ctx context.Context, id, altText string) (*MediaAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	altText = strings.TrimSpace(altText)
	if err := s.repo.UpdateAltText(ctx, id, altText); err != nil {
		return nil, err
	}
	asset.AltText = altText
	return asset, nil
}

// SoftDelete flags the asset as deleted, keeping its files. Deleting an
// already-deleted asset is a no-op and keeps the original deleted_at.
func (s *mediaService) SoftDelete(ctx context.Context, id string) (*MediaAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.IsDeleted() {
		return asset, nil
	}

	at := s.now()
	changed, err := s.repo.MarkDeleted(ctx, id, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with another delete; report the stored timestamp.
		return s.repo.FindByID(ctx, id)
	}
	asset.DeletedAt = &at

	slog.Info("media soft-deleted", slog.String("media_id", id))
	return asset, nil
}

// Restore reactivates a soft-deleted asset. Restoring an active asset is a
// no-op. An asset already past the retention window belongs to the sweep
// and cannot be restored.
func (s *mediaService) Restore(ctx context.Context, id string) (*MediaAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.IsDeleted() {
		return asset, nil
	}

	cutoff := s.now().Add(-s.retention)
	if asset.DeletedAt.Before(cutoff) {
		return nil, errPurgePending()
	}
	restored, err := s.repo.Restore(ctx, id, cutoff)
	if err != nil {
		return nil, err
	}
	if !restored {
		// Raced with a sweep or another restore.
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsDeleted() {
			return nil, errPurgePending()
		}
		return current, nil
	}
	asset.DeletedAt = nil

	slog.Info("media restored", slog.String("media_id", id))
	return asset, nil
}

func errPurgePending() *apperror.AppError {
	return apperror.NewConflict("media asset is past the retention window and awaiting purge").
		WithType("purge_pending")
}

// PermanentDelete removes the files and then the row. If any file cannot
// be removed the row is kept so a later attempt can finish the job.
func (s *mediaService) PermanentDelete(ctx context.Context, id string) error {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.removeAll(asset.Keys()); err != nil {
		return apperror.NewInternal(fmt.Errorf("removing media files: %w", err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("media permanently deleted", slog.String("media_id", id))
	return nil
}

// Resolve picks the smallest variant at least as wide as requested, and
// the original when no variant qualifies.
func (s *mediaService) Resolve(asset *MediaAsset, dc DisplayContext) Rendition {
	return resolveRendition(asset, dc)
}

func resolveRendition(asset *MediaAsset, dc DisplayContext) Rendition {
	if dc.Width > 0 {
		for _, v := range asset.Variants.All() {
			if v.Width >= dc.Width {
				return Rendition{
					Variant:  v.Name,
					Key:      v.Path,
					MimeType: "image/webp",
					Width:    v.Width,
					Height:   v.Height,
				}
			}
		}
	}
	r := Rendition{Variant: RenditionOriginal, Key: asset.StorageKey, MimeType: asset.MimeType}
	if asset.Width != nil && asset.Height != nil {
		r.Width, r.Height = *asset.Width, *asset.Height
	}
	return r
}

// ParseDisplayContext accepts a variant name, "original", or a pixel width.
func ParseDisplayContext(size string) (DisplayContext, error) {
	if size == RenditionOriginal {
		return DisplayContext{}, nil
	}
	for _, spec := range DefaultVariantSpecs {
		if spec.Name == size {
			return DisplayContext{Width: spec.Width}, nil
		}
	}
	w, err := strconv.Atoi(size)
	if err != nil || w <= 0 || w > 10000 {
		return DisplayContext{}, apperror.NewBadRequest("invalid display size: " + size)
	}
	return DisplayContext{Width: w}, nil
}

// FilePath returns the absolute path of a stored key.
func (s *mediaService) FilePath(key string) (string, error) {
	path, err := s.store.Path(key)
	if err != nil {
		return "", apperror.NewNotFound("media file not found")
	}
	return path, nil
}

// Stats returns storage totals.
func (s *mediaService) Stats(ctx context.Context) (*StorageStats, error) {
	return s.repo.GetStorageStats(ctx)
}
