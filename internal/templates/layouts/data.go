// data.go provides typed context helpers for passing layout data from
// handlers/middleware to Templ templates. This avoids importing plugin
// types in the layouts package; only simple types are stored.
//
// Data flow: Handler/Middleware -> Echo Context -> LayoutInjector -> Go Context -> Templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keySiteName   ctxKey = "layout_site_name"
	keyLang       ctxKey = "layout_lang"
	keyLanguages  ctxKey = "layout_languages"
	keyActivePath ctxKey = "layout_active_path"
	keyRequestID  ctxKey = "layout_request_id"
)

// Echo context keys read by the layout injector. Handlers and middleware
// store values under these names with c.Set.
const (
	EchoKeyLang      = "site_lang"
	EchoKeyRequestID = "request_id"
)

// --- Setters (called by the layout injector in app/routes.go) ---

// SetSiteName stores the site title shown in the header and <title>.
func SetSiteName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keySiteName, name)
}

// SetLang stores the language of the page being rendered.
func SetLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, keyLang, lang)
}

// SetLanguages stores the supported languages for the language switcher.
func SetLanguages(ctx context.Context, langs []string) context.Context {
	return context.WithValue(ctx, keyLanguages, langs)
}

// SetActivePath stores the request path for language-switch links.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// SetRequestID stores the request id shown on error pages.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// --- Getters (called by Templ templates) ---

// GetSiteName returns the site title, or "Folio" if unset.
func GetSiteName(ctx context.Context) string {
	if v, ok := ctx.Value(keySiteName).(string); ok && v != "" {
		return v
	}
	return "Folio"
}

// GetLang returns the page language, or "" if unset.
func GetLang(ctx context.Context) string {
	v, _ := ctx.Value(keyLang).(string)
	return v
}

// GetLanguages returns the supported languages.
func GetLanguages(ctx context.Context) []string {
	v, _ := ctx.Value(keyLanguages).([]string)
	return v
}

// GetActivePath returns the current request path.
func GetActivePath(ctx context.Context) string {
	v, _ := ctx.Value(keyActivePath).(string)
	return v
}

// GetRequestID returns the request id, or "" if unset.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
