package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the activity feed on the admin group.
func RegisterRoutes(admin *echo.Group, h *Handler) {
	admin.GET("/audit", h.List)
}
