// Package pages holds the Templ components for the public site. Components
// take plain view structs so this package never imports plugin types;
// layout data (site name, language) comes from the context via layouts.
package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/folio/internal/templates/layouts"
)

// Card is one entry in a listing.
type Card struct {
	URL         string
	Type        string
	Title       string
	Description string
	CoverURL    string
	Date        string
	Featured    bool
}

// Fact is a labelled detail shown under an article (client, year, source).
type Fact struct {
	Label string
	Value string
	URL   string
}

// Article is a full content page.
type Article struct {
	Type            string
	Title           string
	Description     string
	BodyHTML        string // Sanitized on write; rendered unescaped.
	MetaTitle       string
	MetaDescription string
	CoverURL        string
	Date            string
	Facts           []Fact
	BackURL         string
}

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) text(s string) { w.raw(templ.EscapeString(s)) }

func (w *writer) attr(name, value string) {
	w.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// Layout wraps body in the site chrome.
func Layout(title, description string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		site := layouts.GetSiteName(ctx)
		lang := layouts.GetLang(ctx)
		if title == "" {
			title = site
		} else {
			title = title + " | " + site
		}

		w.raw("<!DOCTYPE html><html")
		if lang != "" {
			w.attr("lang", lang)
		}
		w.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw("<title>")
		w.text(title)
		w.raw("</title>")
		if description != "" {
			w.raw(`<meta name="description"`)
			w.attr("content", description)
			w.raw(">")
		}
		w.raw(`<link rel="stylesheet" href="/static/css/site.css"></head><body>`)

		w.raw(`<header class="site-header"><a class="site-name"`)
		w.attr("href", "/"+lang)
		w.raw(">")
		w.text(site)
		w.raw("</a>")
		languageSwitcher(ctx, w, lang)
		w.raw("</header><main>")
		if w.err != nil {
			return w.err
		}
		if err := body.Render(ctx, out); err != nil {
			return err
		}
		w.raw("</main></body></html>")
		return w.err
	})
}

func languageSwitcher(ctx context.Context, w *writer, current string) {
	langs := layouts.GetLanguages(ctx)
	if len(langs) < 2 {
		return
	}
	path := layouts.GetActivePath(ctx)
	w.raw(`<nav class="languages">`)
	for _, l := range langs {
		if l == current {
			w.raw(`<span class="active">`)
			w.text(strings.ToUpper(l))
			w.raw("</span>")
			continue
		}
		w.raw("<a")
		w.attr("href", SwitchLanguage(path, l))
		w.attr("hreflang", l)
		w.raw(">")
		w.text(strings.ToUpper(l))
		w.raw("</a>")
	}
	w.raw("</nav>")
}

// SwitchLanguage replaces the leading language segment of path with lang.
func SwitchLanguage(path, lang string) string {
	rest := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/" + lang + rest[i:]
	}
	return "/" + lang
}

// ContentList renders a grid of cards.
func ContentList(heading string, cards []Card, empty string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw("<h1>")
		w.text(heading)
		w.raw("</h1>")
		if len(cards) == 0 {
			w.raw(`<p class="empty">`)
			w.text(empty)
			w.raw("</p>")
			return w.err
		}
		w.raw(`<ul class="cards">`)
		for _, c := range cards {
			w.raw("<li")
			if c.Featured {
				w.attr("class", "card featured")
			} else {
				w.attr("class", "card")
			}
			w.attr("data-type", c.Type)
			w.raw("><a")
			w.attr("href", string(templ.URL(c.URL)))
			w.raw(">")
			if c.CoverURL != "" {
				w.raw("<img")
				w.attr("src", string(templ.URL(c.CoverURL)))
				w.attr("alt", "")
				w.raw(` loading="lazy">`)
			}
			w.raw("<h2>")
			w.text(c.Title)
			w.raw("</h2>")
			if c.Date != "" {
				w.raw("<time>")
				w.text(c.Date)
				w.raw("</time>")
			}
			if c.Description != "" {
				w.raw("<p>")
				w.text(c.Description)
				w.raw("</p>")
			}
			w.raw("</a></li>")
		}
		w.raw("</ul>")
		return w.err
	})
}

// ContentDetail renders a single article.
func ContentDetail(a Article) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw("<article")
		w.attr("data-type", a.Type)
		w.raw(">")
		if a.CoverURL != "" {
			w.raw("<img")
			w.attr("class", "cover")
			w.attr("src", string(templ.URL(a.CoverURL)))
			w.attr("alt", a.Title)
			w.raw(">")
		}
		w.raw("<h1>")
		w.text(a.Title)
		w.raw("</h1>")
		if a.Date != "" {
			w.raw("<time>")
			w.text(a.Date)
			w.raw("</time>")
		}
		if a.Description != "" {
			w.raw(`<p class="lead">`)
			w.text(a.Description)
			w.raw("</p>")
		}
		w.raw(`<div class="body">`)
		w.raw(a.BodyHTML)
		w.raw("</div>")
		if len(a.Facts) > 0 {
			w.raw(`<dl class="facts">`)
			for _, f := range a.Facts {
				w.raw("<dt>")
				w.text(f.Label)
				w.raw("</dt><dd>")
				if f.URL != "" {
					w.raw("<a")
					w.attr("href", string(templ.URL(f.URL)))
					w.raw(` rel="noopener" target="_blank">`)
					w.text(f.Value)
					w.raw("</a>")
				} else {
					w.text(f.Value)
				}
				w.raw("</dd>")
			}
			w.raw("</dl>")
		}
		if a.BackURL != "" {
			w.raw(`<p><a class="back"`)
			w.attr("href", a.BackURL)
			w.raw(">&larr;</a></p>")
		}
		w.raw("</article>")
		return w.err
	})
}

// ErrorPage renders a full error page for site requests.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<section class="error"><h1>`)
		w.text(fmt.Sprintf("%d", code))
		w.raw("</h1><p>")
		w.text(message)
		w.raw("</p>")
		if id := layouts.GetRequestID(ctx); id != "" {
			w.raw(`<p class="request-id">`)
			w.text("Request ID: " + id)
			w.raw("</p>")
		}
		w.raw("</section>")
		return w.err
	})
	return Layout(message, "", body)
}
