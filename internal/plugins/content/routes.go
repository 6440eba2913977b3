package content

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up content routes. admin is the /api/v1 group guarded
// by the admin token middleware; public endpoints hang off e directly.
func RegisterRoutes(e *echo.Echo, admin *echo.Group, h *Handler) {
	pub := e.Group("/api/v1/public/content")
	pub.GET("", h.PublicList)
	pub.GET("/:slug", h.PublicGet)

	g := admin.Group("/content")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/status", h.Transition)
	g.PUT("/:id/translations/:lang", h.PutTranslation)
	g.DELETE("/:id/translations/:lang", h.DeleteTranslation)
}
