package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/database"
)

// ContentRepository defines the data access contract for content items.
// Writes touching more than one table run in a single transaction.
type ContentRepository interface {
	Create(ctx context.Context, item *ContentItem) error
	FindByID(ctx context.Context, id string) (*ContentItem, error)
	FindBySlug(ctx context.Context, slug string) (*ContentItem, error)

	// SlugExists reports whether slug is used by an item other than excludeID.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	// Update rewrites the base row and upserts the extension row.
	Update(ctx context.Context, item *ContentItem) error

	// UpdateStatus moves the item from one status to another. publishAt,
	// when non-nil, fills published_at only if it was never set. Returns
	// false when the item is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to Status, publishAt *time.Time, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error

	UpsertTranslation(ctx context.Context, contentID string, tr *Translation) error
	DeleteTranslation(ctx context.Context, contentID, lang string) error

	List(ctx context.Context, filter ListFilter) ([]ContentItem, int, error)
}

// contentRepository implements ContentRepository with MariaDB queries.
type contentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

// contentSelect joins the base row with every extension table; at most one
// extension matches.
const contentSelect = `SELECT c.id, c.type, c.slug, c.status, c.featured, c.sort_order,
	c.cover_media_id, c.published_at, c.created_at, c.updated_at,
	p.client_name, p.year, p.project_url,
	m.media_id, m.category,
	n.event_date, n.source_url
	FROM content_items c
	LEFT JOIN content_projects p ON p.content_id = c.id
	LEFT JOIN content_materials m ON m.content_id = c.id
	LEFT JOIN content_news n ON n.content_id = c.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*ContentItem, error) {
	item := &ContentItem{}
	var (
		cover, mediaID                   sql.NullString
		clientName, projectURL, category sql.NullString
		sourceURL                        sql.NullString
		publishedAt, eventDate           sql.NullTime
		year                             sql.NullInt64
	)
	if err := s.Scan(
		&item.ID, &item.Type, &item.Slug, &item.Status, &item.Featured, &item.SortOrder,
		&cover, &publishedAt, &item.CreatedAt, &item.UpdatedAt,
		&clientName, &year, &projectURL,
		&mediaID, &category,
		&eventDate, &sourceURL,
	); err != nil {
		return nil, err
	}

	item.CoverMediaID = nullStringPtr(cover)
	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}

	switch item.Type {
	case TypeProject:
		d := &ProjectDetails{ClientName: clientName.String, ProjectURL: projectURL.String}
		if year.Valid {
			y := int(year.Int64)
			d.Year = &y
		}
		item.Project = d
	case TypeMaterial:
		item.Material = &MaterialDetails{MediaID: nullStringPtr(mediaID), Category: category.String}
	case TypeNews:
		d := &NewsDetails{SourceURL: sourceURL.String}
		if eventDate.Valid {
			t := eventDate.Time
			d.EventDate = &t
		}
		item.News = d
	}
	item.Translations = []Translation{}
	return item, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

// mapWriteError converts constraint violations into client errors.
func mapWriteError(err error, action string) error {
	switch {
	case database.IsDuplicateEntry(err):
		return apperror.NewConflict("slug is already in use").WithType("duplicate_slug")
	case database.IsForeignKeyViolation(err):
		return apperror.NewValidation("referenced media asset does not exist").WithType("invalid_reference")
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// Create inserts the base row, its extension row and all translations.
func (r *contentRepository) Create(ctx context.Context, item *ContentItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning create tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_items (id, type, slug, status, featured, sort_order,
		 cover_media_id, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Type, item.Slug, item.Status, item.Featured, item.SortOrder,
		nullString(item.CoverMediaID), nullTime(item.PublishedAt), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "inserting content item")
	}

	if err := upsertDetails(ctx, tx, item); err != nil {
		return err
	}
	for i := range item.Translations {
		if err := upsertTranslation(ctx, tx, item.ID, &item.Translations[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// upsertDetails writes the extension row matching item.Type.
func upsertDetails(ctx context.Context, tx *sql.Tx, item *ContentItem) error {
	var err error
	switch item.Type {
	case TypeProject:
		d := item.Project
		if d == nil {
			d = &ProjectDetails{}
		}
		var year sql.NullInt64
		if d.Year != nil {
			year = sql.NullInt64{Int64: int64(*d.Year), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_projects (content_id, client_name, year, project_url)
			 VALUES (?, ?, ?, ?)
			 ON DUPLICATE KEY UPDATE client_name = VALUES(client_name), year = VALUES(year),
			 project_url = VALUES(project_url)`,
			item.ID, d.ClientName, year, d.ProjectURL)
	case TypeMaterial:
		d := item.Material
		if d == nil {
			d = &MaterialDetails{}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_materials (content_id, media_id, category)
			 VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE media_id = VALUES(media_id), category = VALUES(category)`,
			item.ID, nullString(d.MediaID), d.Category)
	case TypeNews:
		d := item.News
		if d == nil {
			d = &NewsDetails{}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_news (content_id, event_date, source_url)
			 VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE event_date = VALUES(event_date), source_url = VALUES(source_url)`,
			item.ID, nullTime(d.EventDate), d.SourceURL)
	default:
		return fmt.Errorf("unknown content type %q", item.Type)
	}
	if err != nil {
		return mapWriteError(err, "writing "+string(item.Type)+" details")
	}
	return nil
}

func upsertTranslation(ctx context.Context, tx *sql.Tx, contentID string, tr *Translation) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO content_translations (content_id, lang, title, description, body,
		 meta_title, meta_description, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE title = VALUES(title), description = VALUES(description),
		 body = VALUES(body), meta_title = VALUES(meta_title),
		 meta_description = VALUES(meta_description), updated_at = VALUES(updated_at)`,
		contentID, tr.Lang, tr.Title, tr.Description, tr.Body,
		tr.MetaTitle, tr.MetaDescription, tr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing %s translation: %w", tr.Lang, err)
	}
	return nil
}

// FindByID retrieves an item with its translations.
func (r *contentRepository) FindByID(ctx context.Context, id string) (*ContentItem, error) {
	return r.findOne(ctx, `c.id = ?`, id)
}

// FindBySlug retrieves an item by slug with its translations.
func (r *contentRepository) FindBySlug(ctx context.Context, slug string) (*ContentItem, error) {
	return r.findOne(ctx, `c.slug = ?`, slug)
}

func (r *contentRepository) findOne(ctx context.Context, where string, arg any) (*ContentItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, contentSelect+` WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("content not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying content item: %w", err)
	}
	if err := r.loadTranslations(ctx, []*ContentItem{item}); err != nil {
		return nil, err
	}
	return item, nil
}

// loadTranslations fills Translations for every item with one query.
func (r *contentRepository) loadTranslations(ctx context.Context, items []*ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*ContentItem, len(items))
	args := make([]any, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		args = append(args, it.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", ")

	rows, err := r.db.QueryContext(ctx,
		`SELECT content_id, lang, title, COALESCE(description, ''), COALESCE(body, ''),
		 meta_title, meta_description, updated_at
		 FROM content_translations WHERE content_id IN (`+placeholders+`)
		 ORDER BY content_id, lang`, args...)
	if err != nil {
		return fmt.Errorf("querying translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentID string
		var tr Translation
		if err := rows.Scan(&contentID, &tr.Lang, &tr.Title, &tr.Description, &tr.Body,
			&tr.MetaTitle, &tr.MetaDescription, &tr.UpdatedAt); err != nil {
			return fmt.Errorf("scanning translation: %w", err)
		}
		if it, ok := byID[contentID]; ok {
			it.Translations = append(it.Translations, tr)
		}
	}
	return rows.Err()
}

// SlugExists checks slug uniqueness, ignoring excludeID when set.
func (r *contentRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM content_items WHERE slug = ? AND id <> ?)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return exists, nil
}

// Update rewrites the editable base fields and the extension row.
func (r *contentRepository) Update(ctx context.Context, item *ContentItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE content_items SET slug = ?, featured = ?, sort_order = ?, cover_media_id = ?,
		 updated_at = ? WHERE id = ?`,
		item.Slug, item.Featured, item.SortOrder, nullString(item.CoverMediaID),
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return mapWriteError(err, "updating content item")
	}
	if err := upsertDetails(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateStatus is a compare-and-set on status. published_at is written at
// most once.
func (r *contentRepository) UpdateStatus(ctx context.Context, id string, from, to Status, publishAt *time.Time, updatedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content_items
		 SET status = ?, published_at = COALESCE(published_at, ?), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, nullTime(publishAt), updatedAt, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("updating content status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes an item; extension and translation rows cascade.
func (r *contentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting content item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("content not found")
	}
	return nil
}

// UpsertTranslation writes one translation and bumps the item's updated_at.
func (r *contentRepository) UpsertTranslation(ctx context.Context, contentID string, tr *Translation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning translation tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTranslation(ctx, tx, contentID, tr); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE content_items SET updated_at = ? WHERE id = ?`, tr.UpdatedAt, contentID,
	); err != nil {
		return fmt.Errorf("touching content item: %w", err)
	}
	return tx.Commit()
}

// DeleteTranslation removes one language from an item.
func (r *contentRepository) DeleteTranslation(ctx context.Context, contentID, lang string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM content_translations WHERE content_id = ? AND lang = ?`, contentID, lang)
	if err != nil {
		return fmt.Errorf("deleting translation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("translation not found")
	}
	return nil
}

// List returns a page of items matching filter with the total count.
// Featured items sort first, then by sort_order and recency.
func (r *contentRepository) List(ctx context.Context, filter ListFilter) ([]ContentItem, int, error) {
	filter = filter.normalize()

	var conds []string
	var args []any
	if filter.Type != "" {
		conds = append(conds, "c.type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conds = append(conds, "c.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Featured != nil {
		conds = append(conds, "c.featured = ?")
		args = append(args, *filter.Featured)
	}
	if filter.Translated {
		conds = append(conds, "EXISTS (SELECT 1 FROM content_translations t WHERE t.content_id = c.id)")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items c`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting content: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		contentSelect+where+
			` ORDER BY c.featured DESC, c.sort_order ASC, COALESCE(c.published_at, c.created_at) DESC, c.id DESC
			 LIMIT ? OFFSET ?`,
		append(args, filter.PerPage, filter.Offset())...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning content row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	ptrs := make([]*ContentItem, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	if err := r.loadTranslations(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
