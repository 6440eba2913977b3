// Package content manages portfolio content: projects, materials and news
// items sharing one base record, each with a per-type extension row and one
// translation per supported language. Status gates public visibility.
package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/keyxmakerx/folio/internal/validation"
)

// ContentType is the subtype of a content item.
type ContentType string

const (
	TypeProject  ContentType = "project"
	TypeMaterial ContentType = "material"
	TypeNews     ContentType = "news"
)

// Valid reports whether t is a known type.
func (t ContentType) Valid() bool {
	switch t {
	case TypeProject, TypeMaterial, TypeNews:
		return true
	}
	return false
}

// Status is the publication state of a content item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// transitions lists the allowed target states per source state. Nothing
// returns to draft once it has left it.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPublished, StatusArchived},
	StatusPublished: {StatusArchived},
	StatusArchived:  {StatusPublished},
}

// CanTransition reports whether from -> to is allowed. Same-state
// transitions are allowed and treated as no-ops by the service.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ContentItem is the base record plus its children.
type ContentItem struct {
	ID           string      `json:"id"`
	Type         ContentType `json:"type"`
	Slug         string      `json:"slug"`
	Status       Status      `json:"status"`
	Featured     bool        `json:"featured"`
	SortOrder    int         `json:"sort_order"`
	CoverMediaID *string     `json:"cover_media_id"`
	PublishedAt  *time.Time  `json:"published_at"` // Set on first publish, never reset.
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	Translations []Translation `json:"translations"`

	// Exactly one of these is set, matching Type.
	Project  *ProjectDetails  `json:"project,omitempty"`
	Material *MaterialDetails `json:"material,omitempty"`
	News     *NewsDetails     `json:"news,omitempty"`

	// Completeness is filled in on admin reads.
	Completeness *Completeness `json:"completeness,omitempty"`
}

// IsPublic reports whether the item may appear on public pages.
func (c *ContentItem) IsPublic() bool {
	return c.Status == StatusPublished
}

// Translation returns the translation for lang or nil.
func (c *ContentItem) Translation(lang string) *Translation {
	for i := range c.Translations {
		if c.Translations[i].Lang == lang {
			return &c.Translations[i]
		}
	}
	return nil
}

// Translation holds the language-specific fields of an item.
type Translation struct {
	Lang            string    `json:"lang"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Body            string    `json:"body"` // Sanitized HTML.
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsComplete reports whether the translation has both title and body.
func (t *Translation) IsComplete() bool {
	return strings.TrimSpace(t.Title) != "" && strings.TrimSpace(t.Body) != ""
}

// ProjectDetails is the extension row for projects.
type ProjectDetails struct {
	ClientName string `json:"client_name" validate:"max=200"`
	Year       *int   `json:"year" validate:"omitempty,min=1900,max=2100"`
	ProjectURL string `json:"project_url" validate:"omitempty,http_url,max=500"`
}

// MaterialDetails is the extension row for materials.
type MaterialDetails struct {
	MediaID  *string `json:"media_id" validate:"omitempty,uuid"`
	Category string  `json:"category" validate:"max=100"`
}

// NewsDetails is the extension row for news items.
type NewsDetails struct {
	EventDate *time.Time `json:"event_date"`
	SourceURL string     `json:"source_url" validate:"omitempty,http_url,max=500"`
}

// Completeness reports which supported languages have a usable
// translation (non-empty title and body).
type Completeness struct {
	Complete bool     `json:"complete"`
	Present  []string `json:"present"`
	Missing  []string `json:"missing"`
}

// ComputeCompleteness checks item against the supported languages in order.
func ComputeCompleteness(item *ContentItem, languages []string) Completeness {
	c := Completeness{Present: []string{}, Missing: []string{}}
	for _, lang := range languages {
		if tr := item.Translation(lang); tr != nil && tr.IsComplete() {
			c.Present = append(c.Present, lang)
		} else {
			c.Missing = append(c.Missing, lang)
		}
	}
	c.Complete = len(c.Missing) == 0
	return c
}

// --- Inputs ---

// TranslationInput is the editable part of a translation.
type TranslationInput struct {
	Lang            string `json:"lang" validate:"omitempty,max=10"`
	Title           string `json:"title" validate:"required,max=300"`
	Description     string `json:"description" validate:"max=5000"`
	Body            string `json:"body"`
	MetaTitle       string `json:"meta_title" validate:"max=300"`
	MetaDescription string `json:"meta_description" validate:"max=500"`
}

// CreateInput is the body of POST /api/v1/content.
type CreateInput struct {
	Type         ContentType        `json:"type" validate:"required,oneof=project material news"`
	Slug         string             `json:"slug" validate:"omitempty,slug"`
	Featured     bool               `json:"featured"`
	SortOrder    int                `json:"sort_order"`
	CoverMediaID *string            `json:"cover_media_id" validate:"omitempty,uuid"`
	Translations []TranslationInput `json:"translations" validate:"dive"`
	Project      *ProjectDetails    `json:"project"`
	Material     *MaterialDetails   `json:"material"`
	News         *NewsDetails       `json:"news"`
}

// UpdateInput is the body of PUT /api/v1/content/:id. It replaces the
// base fields and the extension row; translations have their own
// endpoints.
type UpdateInput struct {
	Slug         string           `json:"slug" validate:"omitempty,slug"`
	Featured     bool             `json:"featured"`
	SortOrder    int              `json:"sort_order"`
	CoverMediaID *string          `json:"cover_media_id" validate:"omitempty,uuid"`
	Project      *ProjectDetails  `json:"project"`
	Material     *MaterialDetails `json:"material"`
	News         *NewsDetails     `json:"news"`
}

// ListFilter narrows listings. Zero values mean "any".
type ListFilter struct {
	Type     ContentType
	Status   Status
	Featured *bool

	// Translated keeps only items with at least one translation, the ones
	// the public API can render.
	Translated bool

	Page    int
	PerPage int
}

func (f ListFilter) normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	return f
}

// Offset returns the SQL offset for the current page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// PublicItem is a published item flattened to a single language, as served
// to the public API and site.
type PublicItem struct {
	ID              string           `json:"id"`
	Type            ContentType      `json:"type"`
	Slug            string           `json:"slug"`
	Featured        bool             `json:"featured"`
	CoverMediaID    *string          `json:"cover_media_id,omitempty"`
	PublishedAt     *time.Time       `json:"published_at"`
	Lang            string           `json:"lang"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Body            string           `json:"body"`
	MetaTitle       string           `json:"meta_title"`
	MetaDescription string           `json:"meta_description"`
	Project         *ProjectDetails  `json:"project,omitempty"`
	Material        *MaterialDetails `json:"material,omitempty"`
	News            *NewsDetails     `json:"news,omitempty"`
}

// toPublic flattens item to lang, falling back to fallbackLang and then to
// the first translation. Returns false if the item has no translations.
func toPublic(item *ContentItem, lang, fallbackLang string) (PublicItem, bool) {
	tr := item.Translation(lang)
	if tr == nil {
		tr = item.Translation(fallbackLang)
	}
	if tr == nil && len(item.Translations) > 0 {
		tr = &item.Translations[0]
	}
	if tr == nil {
		return PublicItem{}, false
	}
	return PublicItem{
		ID:              item.ID,
		Type:            item.Type,
		Slug:            item.Slug,
		Featured:        item.Featured,
		CoverMediaID:    item.CoverMediaID,
		PublishedAt:     item.PublishedAt,
		Lang:            tr.Lang,
		Title:           tr.Title,
		Description:     tr.Description,
		Body:            tr.Body,
		MetaTitle:       tr.MetaTitle,
		MetaDescription: tr.MetaDescription,
		Project:         item.Project,
		Material:        item.Material,
		News:            item.News,
	}, true
}

// --- Slugs ---

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a URL-safe slug: lowercase ASCII words
// joined by single hyphens, at most 200 characters. Returns "" if nothing
// usable remains.
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > validation.MaxSlugLen {
		slug = strings.TrimRight(slug[:validation.MaxSlugLen], "-")
	}
	return slug
}
