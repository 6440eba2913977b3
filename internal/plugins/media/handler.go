package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/plugins/audit"
)

// Handler handles HTTP requests for media operations.
type Handler struct {
	service       MediaService
	cleanup       CleanupService
	retentionDays int // Default for the cleanup endpoint.
}

// NewHandler creates a new media handler.
func NewHandler(service MediaService, cleanup CleanupService, retentionDays int) *Handler {
	return &Handler{service: service, cleanup: cleanup, retentionDays: retentionDays}
}

// listQuery binds GET /api/v1/media query parameters.
type listQuery struct {
	Page    int  `query:"page" validate:"omitempty,min=1"`
	PerPage int  `query:"per_page" validate:"omitempty,min=1,max=100"`
	Trashed bool `query:"trashed"`
}

// altTextRequest is the body of PATCH /api/v1/media/:id.
type altTextRequest struct {
	AltText string `json:"alt_text" validate:"max=500"`
}

// Upload handles multipart file uploads (POST /api/v1/media).
func (h *Handler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		// Chunked bodies get past the Content-Length check and only hit
		// the limit while being read.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewTooLarge(
				fmt.Sprintf("request body too large; maximum is %d MB", tooLarge.Limit/(1024*1024)))
		}
		return apperror.NewBadRequest("no file provided")
	}

	src, err := file.Open()
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return apperror.NewInternal(err)
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}

	asset, err := h.service.Upload(c.Request().Context(), UploadInput{
		Filename: file.Filename,
		MimeType: mimeType,
		AltText:  c.FormValue("alt_text"),
		Data:     data,
	})
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionMediaUploaded, audit.ResourceMedia, asset.ID, map[string]any{
		"filename": asset.Filename,
		"size":     asset.Size,
	})
	return c.JSON(http.StatusCreated, toResponse(asset))
}

// List returns a page of assets (GET /api/v1/media).
func (h *Handler) List(c echo.Context) error {
	var q listQuery
	if err := c.Bind(&q); err != nil {
		return apperror.NewBadRequest("invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	opts := ListOptions{Page: q.Page, PerPage: q.PerPage, Trashed: q.Trashed}.normalize()
	assets, total, err := h.service.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}

	data := make([]mediaResponse, 0, len(assets))
	for i := range assets {
		data = append(data, toResponse(&assets[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":     data,
		"total":    total,
		"page":     opts.Page,
		"per_page": opts.PerPage,
	})
}

// Get returns a single asset, including soft-deleted ones (GET /api/v1/media/:id).
func (h *Handler) Get(c echo.Context) error {
	asset, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(asset))
}

// UpdateAltText changes an asset's alt text (PATCH /api/v1/media/:id).
func (h *Handler) UpdateAltText(c echo.Context) error {
	var req altTextRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	asset, err := h.service.UpdateAltText(c.Request().Context(), c.Param("id"), req.AltText)
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionMediaUpdated, audit.ResourceMedia, asset.ID, nil)
	return c.JSON(http.StatusOK, toResponse(asset))
}

// SoftDelete moves an asset to the trash (DELETE /api/v1/media/:id).
func (h *Handler) SoftDelete(c echo.Context) error {
	asset, err := h.service.SoftDelete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionMediaDeleted, audit.ResourceMedia, asset.ID, nil)
	return c.JSON(http.StatusOK, toResponse(asset))
}

// Restore brings an asset back from the trash (POST /api/v1/media/:id/restore).
func (h *Handler) Restore(c echo.Context) error {
	asset, err := h.service.Restore(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	audit.Note(c, audit.ActionMediaRestored, audit.ResourceMedia, asset.ID, nil)
	return c.JSON(http.StatusOK, toResponse(asset))
}

// PermanentDelete removes an asset and its files (DELETE /api/v1/media/:id/permanent).
func (h *Handler) PermanentDelete(c echo.Context) error {
	if err := h.service.PermanentDelete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	audit.Note(c, audit.ActionMediaPurged, audit.ResourceMedia, c.Param("id"), nil)
	return c.NoContent(http.StatusNoContent)
}

// Stats returns storage totals (GET /api/v1/media/stats).
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Cleanup runs a retention sweep on demand (POST /api/v1/media/cleanup).
func (h *Handler) Cleanup(c echo.Context) error {
	days := h.retentionDays
	if err := echo.QueryParamsBinder(c).Int("retention_days", &days).BindError(); err != nil {
		return apperror.NewBadRequest("retention_days must be an integer")
	}

	result, err := h.cleanup.RunSweep(c.Request().Context(), days)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(err)
	}
	audit.Note(c, audit.ActionMediaSwept, audit.ResourceMedia, "", map[string]any{
		"cleaned":        result.Cleaned,
		"failed":         result.Failed,
		"skipped":        result.Skipped,
		"retention_days": days,
	})
	return c.JSON(http.StatusOK, result)
}

// Serve streams the original file (GET /media/:id). Soft-deleted assets
// are hidden.
func (h *Handler) Serve(c echo.Context) error {
	asset, err := h.service.GetActive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return h.serveRendition(c, h.service.Resolve(asset, DisplayContext{}))
}

// ServeSize streams the best rendition for a display size
// (GET /media/:id/:size, size = thumb|medium|large|original|<width>).
func (h *Handler) ServeSize(c echo.Context) error {
	dc, err := ParseDisplayContext(c.Param("size"))
	if err != nil {
		return err
	}
	asset, err := h.service.GetActive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return h.serveRendition(c, h.service.Resolve(asset, dc))
}

func (h *Handler) serveRendition(c echo.Context, r Rendition) error {
	path, err := h.service.FilePath(r.Key)
	if err != nil {
		return err
	}

	// Storage keys are unique and files never change once written.
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	c.Response().Header().Set("Content-Type", r.MimeType)
	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	if r.MimeType == "image/svg+xml" {
		// SVG can carry script; never let it run in our origin.
		c.Response().Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	}
	return c.File(path)
}
