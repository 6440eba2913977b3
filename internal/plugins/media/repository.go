package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/database"
)

// MediaRepository defines the data access contract for media assets.
type MediaRepository interface {
	Create(ctx context.Context, asset *MediaAsset) error
	FindByID(ctx context.Context, id string) (*MediaAsset, error)
	List(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error)
	UpdateAltText(ctx context.Context, id, altText string) error

	// MarkDeleted sets deleted_at only if the asset is still active.
	// Returns false when no active row matched.
	MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error)

	// Restore clears deleted_at if it is set and not before cutoff.
	// Returns false when no such row matched.
	Restore(ctx context.Context, id string, cutoff time.Time) (bool, error)

	Delete(ctx context.Context, id string) error

	// Purge locks the row if it is still soft-deleted before cutoff, runs
	// removeFiles, and deletes the row in the same transaction. Returns
	// false without calling removeFiles when the row no longer qualifies.
	Purge(ctx context.Context, id string, cutoff time.Time, removeFiles func(*MediaAsset) error) (bool, error)

	// ListPurgeable returns soft-deleted assets with deleted_at before
	// cutoff, ordered by (deleted_at, id) and starting after the cursor.
	ListPurgeable(ctx context.Context, cutoff time.Time, after *PurgeCursor, limit int) ([]MediaAsset, error)

	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// mediaRepository implements MediaRepository with MariaDB queries.
type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository.
func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, filename, mime_type, size, storage_key, alt_text,
	width, height, variants, created_at, deleted_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(s rowScanner) (*MediaAsset, error) {
	a := &MediaAsset{}
	var width, height sql.NullInt64
	var variants sql.NullString
	var deletedAt sql.NullTime
	if err := s.Scan(
		&a.ID, &a.Filename, &a.MimeType, &a.Size, &a.StorageKey, &a.AltText,
		&width, &height, &variants, &a.CreatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	a.Kind = Classify(a.MimeType)
	if width.Valid {
		w := int(width.Int64)
		a.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		a.Height = &h
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}
	vs, err := unmarshalVariants(variants)
	if err != nil {
		return nil, err
	}
	a.Variants = vs
	return a, nil
}

// marshalVariants serializes the manifest for the variants column. An
// empty set is stored as NULL.
func marshalVariants(vs VariantSet) (sql.NullString, error) {
	if vs.IsEmpty() {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(vs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling variants: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalVariants(col sql.NullString) (VariantSet, error) {
	var vs VariantSet
	if !col.Valid || col.String == "" || col.String == "{}" || col.String == "null" {
		return vs, nil
	}
	if err := json.Unmarshal([]byte(col.String), &vs); err != nil {
		return vs, fmt.Errorf("unmarshaling variants: %w", err)
	}
	return vs.withNames(), nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Create inserts a new media asset record.
func (r *mediaRepository) Create(ctx context.Context, a *MediaAsset) error {
	variants, err := marshalVariants(a.Variants)
	if err != nil {
		return err
	}

	query := `INSERT INTO media (id, filename, mime_type, size, storage_key, alt_text,
	          width, height, variants, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Filename, a.MimeType, a.Size, a.StorageKey, a.AltText,
		nullInt(a.Width), nullInt(a.Height), variants, a.CreatedAt,
	)
	if database.IsDuplicateEntry(err) {
		return apperror.NewConflict("storage key already exists").WithType("duplicate_storage_key")
	}
	if err != nil {
		return fmt.Errorf("inserting media asset: %w", err)
	}
	return nil
}

// FindByID retrieves an asset by id, including soft-deleted ones.
func (r *mediaRepository) FindByID(ctx context.Context, id string) (*MediaAsset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("media asset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying media asset by id: %w", err)
	}
	return a, nil
}

// List returns active (or, with Trashed, soft-deleted) assets, newest first.
func (r *mediaRepository) List(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error) {
	opts = opts.normalize()
	where := `deleted_at IS NULL`
	order := `created_at DESC, id DESC`
	if opts.Trashed {
		where = `deleted_at IS NOT NULL`
		order = `deleted_at DESC, id DESC`
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE `+where,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting media assets: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE `+where+
			` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		opts.PerPage, opts.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing media assets: %w", err)
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

func scanAssets(rows *sql.Rows) ([]MediaAsset, error) {
	var assets []MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning media asset row: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAltText sets the alt text of an asset. Existence is checked by the
// service; MariaDB reports zero affected rows when the value is unchanged.
func (r *mediaRepository) UpdateAltText(ctx context.Context, id, altText string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE media SET alt_text = ? WHERE id = ?`, altText, id,
	); err != nil {
		return fmt.Errorf("updating alt text: %w", err)
	}
	return nil
}

// MarkDeleted soft-deletes an active asset.
func (r *mediaRepository) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE media SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id,
	)
	if err != nil {
		return false, fmt.Errorf("soft-deleting media asset: %w", err)
	}
	return affectedOne(result)
}

// Restore reactivates a soft-deleted asset that is not yet due for purge.
// A sweep holding the row lock makes this wait, and the purged row then no
// longer matches.
func (r *mediaRepository) Restore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE media SET deleted_at = NULL
		 WHERE id = ? AND deleted_at IS NOT NULL AND deleted_at >= ?`, id, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("restoring media asset: %w", err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows > 0, nil
}

// Delete removes an asset row permanently.
func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting media asset: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewNotFound("media asset not found")
	}
	return nil
}

// Purge deletes a purge candidate under a row lock, so a concurrent
// restore either lands before the lock (and the row is skipped) or blocks
// until the row is gone.
func (r *mediaRepository) Purge(ctx context.Context, id string, cutoff time.Time, removeFiles func(*MediaAsset) error) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media
		 WHERE id = ? AND deleted_at IS NOT NULL AND deleted_at < ?
		 FOR UPDATE`, id, cutoff)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("locking purge candidate: %w", err)
	}

	if err := removeFiles(asset); err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM media WHERE id = ? AND deleted_at IS NOT NULL AND deleted_at < ?`, id, cutoff,
	); err != nil {
		return false, fmt.Errorf("purging media asset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing purge: %w", err)
	}
	return true, nil
}

// ListPurgeable pages through purge candidates with a keyset on
// (deleted_at, id), so rows that fail to purge are not revisited.
func (r *mediaRepository) ListPurgeable(ctx context.Context, cutoff time.Time, after *PurgeCursor, limit int) ([]MediaAsset, error) {
	query := `SELECT ` + mediaColumns + ` FROM media
	          WHERE deleted_at IS NOT NULL AND deleted_at < ?`
	args := []any{cutoff}
	if after != nil {
		query += ` AND (deleted_at > ? OR (deleted_at = ? AND id > ?))`
		args = append(args, after.DeletedAt, after.DeletedAt, after.ID)
	}
	query += ` ORDER BY deleted_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing purge candidates: %w", err)
	}
	defer rows.Close()
	return scanAssets(rows)
}

// GetStorageStats returns aggregate storage statistics across all assets.
func (r *mediaRepository) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{ByKind: make(map[string]KindStats)}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0),
		        COALESCE(SUM(deleted_at IS NOT NULL), 0),
		        COALESCE(SUM(CASE WHEN deleted_at IS NOT NULL THEN size ELSE 0 END), 0)
		 FROM media`,
	).Scan(&stats.TotalFiles, &stats.TotalBytes, &stats.TrashedFiles, &stats.TrashedBytes)
	if err != nil {
		return nil, fmt.Errorf("querying storage totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT mime_type, COUNT(*), COALESCE(SUM(size), 0)
		 FROM media GROUP BY mime_type`)
	if err != nil {
		return nil, fmt.Errorf("querying per-type stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mimeType string
		var ks KindStats
		if err := rows.Scan(&mimeType, &ks.Count, &ks.Bytes); err != nil {
			return nil, fmt.Errorf("scanning per-type row: %w", err)
		}
		kind := Classify(mimeType).String()
		agg := stats.ByKind[kind]
		agg.Count += ks.Count
		agg.Bytes += ks.Bytes
		stats.ByKind[kind] = agg
	}
	return stats, rows.Err()
}
