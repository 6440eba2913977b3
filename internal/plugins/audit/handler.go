package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// Handler serves the activity feed to the admin SPA.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// List returns a page of audit entries (GET /api/v1/audit).
func (h *Handler) List(c echo.Context) error {
	var filter ListFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return apperror.NewBadRequest("invalid query parameters")
	}
	if err := c.Validate(&filter); err != nil {
		return err
	}

	entries, total, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":    entries,
		"total":   total,
		"page":    page,
		"per_page": perPage,
	})
}
