// Package site serves the public portfolio pages: a per-language listing and
// a detail page per published item, rendered with Templ.
package site

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/middleware"
	"github.com/keyxmakerx/folio/internal/plugins/content"
	"github.com/keyxmakerx/folio/internal/templates/layouts"
	"github.com/keyxmakerx/folio/internal/templates/pages"
)

// listingSize caps the number of items on a listing page.
const listingSize = 100

// Handler renders public site pages.
type Handler struct {
	content content.ContentService
}

// NewHandler creates a new site handler.
func NewHandler(svc content.ContentService) *Handler {
	return &Handler{content: svc}
}

// Root redirects to the default language (GET /).
func (h *Handler) Root(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/"+h.content.DefaultLanguage())
}

// language validates the :lang path segment and stores it for the layout.
// Unknown languages are 404s, not validation errors, since they are URLs.
func (h *Handler) language(c echo.Context) (string, error) {
	lang := c.Param("lang")
	if !slices.Contains(h.content.Languages(), lang) {
		return "", apperror.NewNotFound("page not found")
	}
	c.Set(layouts.EchoKeyLang, lang)
	return lang, nil
}

// Index lists published items (GET /:lang, optional ?type=).
func (h *Handler) Index(c echo.Context) error {
	lang, err := h.language(c)
	if err != nil {
		return err
	}
	filter := content.ListFilter{PerPage: listingSize}
	if t := content.ContentType(c.QueryParam("type")); t.Valid() {
		filter.Type = t
	}

	items, _, err := h.content.ListPublic(c.Request().Context(), lang, filter)
	if err != nil {
		return err
	}

	cards := make([]pages.Card, 0, len(items))
	for i := range items {
		cards = append(cards, toCard(&items[i], lang))
	}
	l := labelsFor(lang)
	heading := l.all
	if filter.Type != "" {
		heading = l.types[filter.Type]
	}
	return middleware.Render(c, http.StatusOK,
		pages.Layout(heading, "", pages.ContentList(heading, cards, l.empty)))
}

// Detail shows one published item (GET /:lang/:type/:slug). A type segment
// that does not match the item is a 404.
func (h *Handler) Detail(c echo.Context) error {
	lang, err := h.language(c)
	if err != nil {
		return err
	}
	item, err := h.content.GetPublic(c.Request().Context(), c.Param("slug"), lang)
	if err != nil {
		return err
	}
	if string(item.Type) != c.Param("type") {
		return apperror.NewNotFound("page not found")
	}

	article := toArticle(item, lang)
	title := article.MetaTitle
	if title == "" {
		title = article.Title
	}
	description := article.MetaDescription
	if description == "" {
		description = article.Description
	}
	return middleware.Render(c, http.StatusOK,
		pages.Layout(title, description, pages.ContentDetail(article)))
}

// --- View mapping ---

const dateLayout = "2006-01-02"

func itemURL(item *content.PublicItem, lang string) string {
	return "/" + lang + "/" + string(item.Type) + "/" + item.Slug
}

func coverURL(id *string) string {
	if id == nil {
		return ""
	}
	return "/media/" + *id + "/medium"
}

func displayDate(item *content.PublicItem) string {
	if item.News != nil && item.News.EventDate != nil {
		return item.News.EventDate.Format(dateLayout)
	}
	if item.PublishedAt != nil {
		return item.PublishedAt.Format(dateLayout)
	}
	return ""
}

func toCard(item *content.PublicItem, lang string) pages.Card {
	return pages.Card{
		URL:         itemURL(item, lang),
		Type:        string(item.Type),
		Title:       item.Title,
		Description: item.Description,
		CoverURL:    coverURL(item.CoverMediaID),
		Date:        displayDate(item),
		Featured:    item.Featured,
	}
}

func toArticle(item *content.PublicItem, lang string) pages.Article {
	l := labelsFor(lang)
	a := pages.Article{
		Type:            string(item.Type),
		Title:           item.Title,
		Description:     item.Description,
		BodyHTML:        item.Body,
		MetaTitle:       item.MetaTitle,
		MetaDescription: item.MetaDescription,
		CoverURL:        coverURL(item.CoverMediaID),
		Date:            displayDate(item),
		BackURL:         "/" + lang + "?type=" + string(item.Type),
	}
	switch {
	case item.Project != nil:
		p := item.Project
		if p.ClientName != "" {
			a.Facts = append(a.Facts, pages.Fact{Label: l.client, Value: p.ClientName})
		}
		if p.Year != nil {
			a.Facts = append(a.Facts, pages.Fact{Label: l.year, Value: itoa(*p.Year)})
		}
		if p.ProjectURL != "" {
			a.Facts = append(a.Facts, pages.Fact{Label: l.link, Value: p.ProjectURL, URL: p.ProjectURL})
		}
	case item.Material != nil:
		m := item.Material
		if m.Category != "" {
			a.Facts = append(a.Facts, pages.Fact{Label: l.category, Value: m.Category})
		}
		if m.MediaID != nil {
			a.Facts = append(a.Facts, pages.Fact{Label: l.download, Value: l.download, URL: "/media/" + *m.MediaID})
		}
	case item.News != nil:
		if item.News.SourceURL != "" {
			a.Facts = append(a.Facts, pages.Fact{Label: l.source, Value: item.News.SourceURL, URL: item.News.SourceURL})
		}
	}
	return a
}
