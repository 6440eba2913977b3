package content

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/sanitize"
	"github.com/keyxmakerx/folio/internal/validation"
)

// ContentService handles business logic for content items. It owns slug
// generation, translation sanitization, status transitions and the public
// read path.
type ContentService interface {
	// Admin CRUD. Reads include translation completeness.
	Create(ctx context.Context, input CreateInput) (*ContentItem, error)
	GetByID(ctx context.Context, id string) (*ContentItem, error)
	GetBySlug(ctx context.Context, slug string) (*ContentItem, error)
	Update(ctx context.Context, id string, input UpdateInput) (*ContentItem, error)
	Delete(ctx context.Context, id string) error
	ListAdmin(ctx context.Context, filter ListFilter) ([]ContentItem, int, error)

	// Transition moves an item to another status.
	Transition(ctx context.Context, id string, to Status) (*ContentItem, error)

	// Translations
	UpsertTranslation(ctx context.Context, id, lang string, input TranslationInput) (*ContentItem, error)
	DeleteTranslation(ctx context.Context, id, lang string) error

	// Public reads return published items only, flattened to one language.
	ListPublic(ctx context.Context, lang string, filter ListFilter) ([]PublicItem, int, error)
	GetPublic(ctx context.Context, slug, lang string) (*PublicItem, error)

	Languages() []string
	DefaultLanguage() string
}

// contentService implements ContentService.
type contentService struct {
	repo        ContentRepository
	cache       PublicCache
	languages   []string
	defaultLang string
	now         func() time.Time
}

// NewContentService creates a new content service. A nil cache disables
// caching of public reads.
func NewContentService(repo ContentRepository, cache PublicCache, languages []string, defaultLang string) ContentService {
	if cache == nil {
		cache = NopCache()
	}
	return &contentService{
		repo:        repo,
		cache:       cache,
		languages:   languages,
		defaultLang: defaultLang,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *contentService) Languages() []string     { return s.languages }
func (s *contentService) DefaultLanguage() string { return s.defaultLang }

// checkLanguage normalizes lang and rejects unsupported codes.
func (s *contentService) checkLanguage(lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !slices.Contains(s.languages, lang) {
		return "", apperror.NewValidation(fmt.Sprintf("unsupported language %q", lang)).WithType("invalid_language")
	}
	return lang, nil
}

// buildTranslation sanitizes input into a stored translation.
func buildTranslation(lang string, input TranslationInput, now time.Time) (Translation, error) {
	tr := Translation{
		Lang:            lang,
		Title:           sanitize.Text(input.Title),
		Description:     sanitize.Text(input.Description),
		Body:            sanitize.HTML(input.Body),
		MetaTitle:       sanitize.Text(input.MetaTitle),
		MetaDescription: sanitize.Text(input.MetaDescription),
		UpdatedAt:       now,
	}
	if tr.Title == "" {
		return tr, apperror.NewValidation(fmt.Sprintf("title is required for %s translation", lang))
	}
	return tr, nil
}

// passThrough keeps AppErrors from the repository and hides the rest.
func passThrough(err error, action string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", action, err))
}

// Create validates input and stores a new draft item.
func (s *contentService) Create(ctx context.Context, input CreateInput) (*ContentItem, error) {
	if !input.Type.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown content type %q", input.Type))
	}

	now := s.now()
	translations := make([]Translation, 0, len(input.Translations))
	for _, ti := range input.Translations {
		lang := ti.Lang
		if lang == "" {
			lang = s.defaultLang
		}
		lang, err := s.checkLanguage(lang)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(translations, func(t Translation) bool { return t.Lang == lang }) {
			return nil, apperror.NewValidation(fmt.Sprintf("duplicate %s translation", lang)).WithType("invalid_language")
		}
		tr, err := buildTranslation(lang, ti, now)
		if err != nil {
			return nil, err
		}
		translations = append(translations, tr)
	}

	item := &ContentItem{
		ID:           uuid.NewString(),
		Type:         input.Type,
		Status:       StatusDraft,
		Featured:     input.Featured,
		SortOrder:    input.SortOrder,
		CoverMediaID: emptyToNil(input.CoverMediaID),
		CreatedAt:    now,
		UpdatedAt:    now,
		Translations: translations,
	}
	item.setDetails(input.Project, input.Material, input.News)

	slug, err := s.resolveSlug(ctx, input.Slug, "", item)
	if err != nil {
		return nil, err
	}
	item.Slug = slug

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, passThrough(err, "creating content")
	}
	s.cache.Invalidate(ctx)

	slog.Info("content created",
		slog.String("id", item.ID),
		slog.String("type", string(item.Type)),
		slog.String("slug", item.Slug),
	)
	s.withCompleteness(item)
	return item, nil
}

// setDetails keeps only the extension block matching the item type.
func (c *ContentItem) setDetails(p *ProjectDetails, m *MaterialDetails, n *NewsDetails) {
	c.Project, c.Material, c.News = nil, nil, nil
	switch c.Type {
	case TypeProject:
		if p == nil {
			p = &ProjectDetails{}
		}
		c.Project = p
	case TypeMaterial:
		if m == nil {
			m = &MaterialDetails{}
		}
		m.MediaID = emptyToNil(m.MediaID)
		c.Material = m
	case TypeNews:
		if n == nil {
			n = &NewsDetails{}
		}
		c.News = n
	}
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// resolveSlug validates an explicit slug or derives one from the item's
// default-language title.
func (s *contentService) resolveSlug(ctx context.Context, explicit, excludeID string, item *ContentItem) (string, error) {
	if explicit != "" {
		if !validation.IsSlug(explicit) {
			return "", apperror.NewValidation("slug must be lowercase letters, digits and single hyphens").WithType("invalid_slug")
		}
		exists, err := s.repo.SlugExists(ctx, explicit, excludeID)
		if err != nil {
			return "", apperror.NewInternal(err)
		}
		if exists {
			return "", apperror.NewConflict(fmt.Sprintf("slug %q is already in use", explicit)).WithType("duplicate_slug")
		}
		return explicit, nil
	}

	title := ""
	if tr := item.Translation(s.defaultLang); tr != nil {
		title = tr.Title
	} else if len(item.Translations) > 0 {
		title = item.Translations[0].Title
	}
	slug, err := s.generateSlug(ctx, title, excludeID)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating slug: %w", err))
	}
	return slug, nil
}

// maxSlugAttempts bounds the -2, -3 ... suffix search.
const maxSlugAttempts = 100

// generateSlug derives a unique slug from title. If the base slug is taken,
// appends -2, -3, etc. After maxSlugAttempts, falls back to a random suffix.
func (s *contentService) generateSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "content"
	}
	// Leave room for the suffix.
	if len(base) > validation.MaxSlugLen-10 {
		base = strings.TrimRight(base[:validation.MaxSlugLen-10], "-")
	}
	slug := base

	for i := 2; i < maxSlugAttempts+2; i++ {
		exists, err := s.repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}

	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random slug suffix: %w", err)
	}
	return base + "-" + hex.EncodeToString(b), nil
}

func (s *contentService) withCompleteness(item *ContentItem) {
	c := ComputeCompleteness(item, s.languages)
	item.Completeness = &c
}

// GetByID returns an item by id.
func (s *contentService) GetByID(ctx context.Context, id string) (*ContentItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "loading content")
	}
	s.withCompleteness(item)
	return item, nil
}

// GetBySlug returns an item by slug regardless of status.
func (s *contentService) GetBySlug(ctx context.Context, slug string) (*ContentItem, error) {
	item, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, passThrough(err, "loading content")
	}
	s.withCompleteness(item)
	return item, nil
}

// Update replaces the base fields and extension details of an item. An
// empty slug keeps the current one; a nil details block keeps the stored
// details.
func (s *contentService) Update(ctx context.Context, id string, input UpdateInput) (*ContentItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "loading content")
	}

	if input.Slug != "" && input.Slug != item.Slug {
		slug, err := s.resolveSlug(ctx, input.Slug, item.ID, item)
		if err != nil {
			return nil, err
		}
		item.Slug = slug
	}

	item.Featured = input.Featured
	item.SortOrder = input.SortOrder
	item.CoverMediaID = emptyToNil(input.CoverMediaID)
	project, material, news := item.Project, item.Material, item.News
	if input.Project != nil {
		project = input.Project
	}
	if input.Material != nil {
		material = input.Material
	}
	if input.News != nil {
		news = input.News
	}
	item.setDetails(project, material, news)
	item.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, passThrough(err, "updating content")
	}
	s.cache.Invalidate(ctx)

	s.withCompleteness(item)
	return item, nil
}

// Delete removes an item with its translations and details.
func (s *contentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return passThrough(err, "deleting content")
	}
	s.cache.Invalidate(ctx)
	slog.Info("content deleted", slog.String("id", id))
	return nil
}

// ListAdmin returns items in every status.
func (s *contentService) ListAdmin(ctx context.Context, filter ListFilter) ([]ContentItem, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, passThrough(err, "listing content")
	}
	for i := range items {
		s.withCompleteness(&items[i])
	}
	return items, total, nil
}

// Transition moves an item to status to. Moving to the current status is a
// no-op. PublishedAt is stamped on the first move into published only.
func (s *contentService) Transition(ctx context.Context, id string, to Status) (*ContentItem, error) {
	if !to.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown status %q", to))
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "loading content")
	}

	from := item.Status
	if from == to {
		s.withCompleteness(item)
		return item, nil
	}
	if !CanTransition(from, to) {
		return nil, apperror.NewConflict(fmt.Sprintf("cannot move content from %s to %s", from, to)).WithType("invalid_transition")
	}

	now := s.now()
	var publishAt *time.Time
	if to == StatusPublished {
		publishAt = &now
	}
	moved, err := s.repo.UpdateStatus(ctx, item.ID, from, to, publishAt, now)
	if err != nil {
		return nil, passThrough(err, "updating status")
	}
	if !moved {
		return nil, apperror.NewConflict("content status was changed by another request; reload and retry").
			WithType("status_conflict")
	}
	s.cache.Invalidate(ctx)

	// published_at may predate this request.
	item, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "reloading content")
	}

	slog.Info("content status changed",
		slog.String("id", item.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	s.withCompleteness(item)
	return item, nil
}

// UpsertTranslation creates or replaces the translation for lang.
func (s *contentService) UpsertTranslation(ctx context.Context, id, lang string, input TranslationInput) (*ContentItem, error) {
	lang, err := s.checkLanguage(lang)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "loading content")
	}
	tr, err := buildTranslation(lang, input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertTranslation(ctx, item.ID, &tr); err != nil {
		return nil, passThrough(err, "saving translation")
	}
	s.cache.Invalidate(ctx)

	if existing := item.Translation(lang); existing != nil {
		*existing = tr
	} else {
		item.Translations = append(item.Translations, tr)
	}
	item.UpdatedAt = tr.UpdatedAt
	s.withCompleteness(item)
	return item, nil
}

// DeleteTranslation removes the translation for lang.
func (s *contentService) DeleteTranslation(ctx context.Context, id, lang string) error {
	lang, err := s.checkLanguage(lang)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTranslation(ctx, id, lang); err != nil {
		return passThrough(err, "deleting translation")
	}
	s.cache.Invalidate(ctx)
	return nil
}

// publicLanguage resolves the requested language, defaulting when empty.
func (s *contentService) publicLanguage(lang string) (string, error) {
	if lang == "" {
		return s.defaultLang, nil
	}
	return s.checkLanguage(lang)
}

// publicPage is the cached shape of a public listing.
type publicPage struct {
	Items []PublicItem `json:"items"`
	Total int          `json:"total"`
}

// ListPublic returns published items flattened to lang. The status filter
// is forced to published.
func (s *contentService) ListPublic(ctx context.Context, lang string, filter ListFilter) ([]PublicItem, int, error) {
	lang, err := s.publicLanguage(lang)
	if err != nil {
		return nil, 0, err
	}
	filter = filter.normalize()
	filter.Status = StatusPublished
	filter.Translated = true

	featured := "any"
	if filter.Featured != nil {
		featured = strconv.FormatBool(*filter.Featured)
	}
	key := fmt.Sprintf("list:%s:%s:%s:%d:%d", lang, filter.Type, featured, filter.Page, filter.PerPage)

	var page publicPage
	slot, hit := s.cache.Get(ctx, key, &page)
	if hit {
		return page.Items, page.Total, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, passThrough(err, "listing public content")
	}
	page = publicPage{Items: make([]PublicItem, 0, len(items)), Total: total}
	for i := range items {
		if pi, ok := toPublic(&items[i], lang, s.defaultLang); ok {
			page.Items = append(page.Items, pi)
		}
	}
	s.cache.Set(ctx, slot, page)
	return page.Items, page.Total, nil
}

// GetPublic returns a published item by slug. Drafts, archived items and
// items without any translation are reported as not found.
func (s *contentService) GetPublic(ctx context.Context, slug, lang string) (*PublicItem, error) {
	lang, err := s.publicLanguage(lang)
	if err != nil {
		return nil, err
	}
	key := "item:" + lang + ":" + slug

	var pi PublicItem
	slot, hit := s.cache.Get(ctx, key, &pi)
	if hit {
		return &pi, nil
	}

	item, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, passThrough(err, "loading public content")
	}
	if !item.IsPublic() {
		return nil, apperror.NewNotFound("content not found")
	}
	pi, ok := toPublic(item, lang, s.defaultLang)
	if !ok {
		return nil, apperror.NewNotFound("content not found")
	}
	s.cache.Set(ctx, slot, pi)
	return &pi, nil
}
