package site

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the public site. These are catch-all parameter
// routes, so static prefixes (/api, /media, /static) registered elsewhere
// take precedence in Echo's router.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.Root)
	e.GET("/:lang", h.Index)
	e.GET("/:lang/:type/:slug", h.Detail)
}
