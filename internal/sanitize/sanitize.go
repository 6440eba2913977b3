// Package sanitize provides HTML sanitization for editor-supplied content.
// Uses bluemonday to strip dangerous HTML (script tags, event handlers,
// javascript: URLs) while preserving the formatting the admin editor
// produces for translation bodies.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are built once on first use and shared.
var (
	richPolicy  *bluemonday.Policy
	plainPolicy *bluemonday.Policy
	policyOnce  sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		richPolicy = bluemonday.UGCPolicy()

		// Alignment and code-block classes from the editor.
		richPolicy.AllowAttrs("class").Globally()

		richPolicy.AllowElements("figure", "figcaption")
		richPolicy.AllowAttrs("loading").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")

		// Tables for data sheets on material pages.
		richPolicy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "td", "th", "colgroup", "col", "caption")
		richPolicy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")

		// Links to external sites open in a new tab without leaking the opener.
		richPolicy.AddTargetBlankToFullyQualifiedLinks(true)

		plainPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, plainPolicy
}

// HTML sanitizes rich HTML such as a translation body.
//
// This MUST be called on all editor-provided HTML before storing it. The
// output is safe to render unescaped in templates.
func HTML(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	rich, _ := policies()
	return strings.TrimSpace(rich.Sanitize(input))
}

// Text strips every tag from input, for fields rendered as plain text
// (titles, meta descriptions). Entities are decoded again since templates
// escape on output.
func Text(input string) string {
	if input == "" {
		return ""
	}
	_, plain := policies()
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(input)))
}
