package content

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/plugins/audit"
)

// Handler handles HTTP requests for the admin and public content APIs.
type Handler struct {
	service ContentService
}

// NewHandler creates a new content handler.
func NewHandler(service ContentService) *Handler {
	return &Handler{service: service}
}

// listQuery binds listing query parameters for both APIs. Status is ignored
// on the public API.
type listQuery struct {
	Type     string `query:"type" validate:"omitempty,oneof=project material news"`
	Status   string `query:"status" validate:"omitempty,oneof=draft published archived"`
	Featured string `query:"featured" validate:"omitempty,oneof=true false 1 0"`
	Lang     string `query:"lang" validate:"omitempty,max=10"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PerPage  int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

func (q listQuery) filter() ListFilter {
	f := ListFilter{
		Type:    ContentType(q.Type),
		Status:  Status(q.Status),
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Featured != "" {
		b, _ := strconv.ParseBool(q.Featured)
		f.Featured = &b
	}
	return f.normalize()
}

// statusRequest is the body of POST /api/v1/content/:id/status.
type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived"`
}

func bindQuery(c echo.Context) (listQuery, error) {
	var q listQuery
	if err := c.Bind(&q); err != nil {
		return q, apperror.NewBadRequest("invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return q, err
	}
	return q, nil
}

func listResponse(data any, total int, f ListFilter) map[string]any {
	return map[string]any{
		"data":     data,
		"total":    total,
		"page":     f.Page,
		"per_page": f.PerPage,
	}
}

// --- Admin API ---

// List returns items in every status (GET /api/v1/content).
func (h *Handler) List(c echo.Context) error {
	q, err := bindQuery(c)
	if err != nil {
		return err
	}
	f := q.filter()
	items, total, err := h.service.ListAdmin(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if items == nil {
		items = []ContentItem{}
	}
	return c.JSON(http.StatusOK, listResponse(items, total, f))
}

// Create adds a new draft item (POST /api/v1/content).
func (h *Handler) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}
	item, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionContentCreated, audit.ResourceContent, item.ID, map[string]any{
		"type": item.Type,
		"slug": item.Slug,
	})
	return c.JSON(http.StatusCreated, item)
}

// Get returns one item (GET /api/v1/content/:id).
func (h *Handler) Get(c echo.Context) error {
	item, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Update replaces base fields and details (PUT /api/v1/content/:id).
func (h *Handler) Update(c echo.Context) error {
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}
	item, err := h.service.Update(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionContentUpdated, audit.ResourceContent, item.ID, nil)
	return c.JSON(http.StatusOK, item)
}

// Delete removes an item (DELETE /api/v1/content/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	audit.Note(c, audit.ActionContentDeleted, audit.ResourceContent, c.Param("id"), nil)
	return c.NoContent(http.StatusNoContent)
}

// Transition changes an item's status (POST /api/v1/content/:id/status).
func (h *Handler) Transition(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.service.Transition(c.Request().Context(), c.Param("id"), Status(req.Status))
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionContentStatusChanged, audit.ResourceContent, item.ID, map[string]any{
		"status": item.Status,
	})
	return c.JSON(http.StatusOK, item)
}

// PutTranslation creates or replaces one language
// (PUT /api/v1/content/:id/translations/:lang).
func (h *Handler) PutTranslation(c echo.Context) error {
	var input TranslationInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}
	item, err := h.service.UpsertTranslation(c.Request().Context(), c.Param("id"), c.Param("lang"), input)
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionTranslationSaved, audit.ResourceContent, item.ID, map[string]any{
		"lang": c.Param("lang"),
	})
	return c.JSON(http.StatusOK, item)
}

// DeleteTranslation removes one language
// (DELETE /api/v1/content/:id/translations/:lang).
func (h *Handler) DeleteTranslation(c echo.Context) error {
	if err := h.service.DeleteTranslation(c.Request().Context(), c.Param("id"), c.Param("lang")); err != nil {
		return err
	}
	audit.Note(c, audit.ActionTranslationDeleted, audit.ResourceContent, c.Param("id"), map[string]any{
		"lang": c.Param("lang"),
	})
	return c.NoContent(http.StatusNoContent)
}

// --- Public API ---

// PublicList returns published items in one language
// (GET /api/v1/public/content).
func (h *Handler) PublicList(c echo.Context) error {
	q, err := bindQuery(c)
	if err != nil {
		return err
	}
	f := q.filter()
	items, total, err := h.service.ListPublic(c.Request().Context(), q.Lang, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(items, total, f))
}

// PublicGet returns one published item (GET /api/v1/public/content/:slug).
func (h *Handler) PublicGet(c echo.Context) error {
	item, err := h.service.GetPublic(c.Request().Context(), c.Param("slug"), c.QueryParam("lang"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}
