package media

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/middleware"
)

// RegisterRoutes sets up media routes. admin is the /api/v1 group already
// guarded by the admin token middleware. maxUploadSize limits the request
// body on the upload endpoint so oversized payloads are rejected before
// being read into memory.
func RegisterRoutes(e *echo.Echo, admin *echo.Group, h *Handler, maxUploadSize int64) {
	// Public: serve files with immutable cache headers.
	e.GET("/media/:id", h.Serve)
	e.GET("/media/:id/:size", h.ServeSize)

	// Rate limit uploads: 30 per minute per IP.
	uploadRateLimit := middleware.RateLimit(30, time.Minute)

	// 10% margin above maxUploadSize for multipart encoding overhead.
	bodyLimit := bodyLimitMiddleware(maxUploadSize + maxUploadSize/10)

	g := admin.Group("/media")
	g.POST("", h.Upload, uploadRateLimit, bodyLimit)
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.POST("/cleanup", h.Cleanup)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.UpdateAltText)
	g.DELETE("/:id", h.SoftDelete)
	g.POST("/:id/restore", h.Restore)
	g.DELETE("/:id/permanent", h.PermanentDelete)
}

// bodyLimitMiddleware rejects request bodies exceeding maxBytes before the
// handler reads them.
func bodyLimitMiddleware(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				return apperror.NewTooLarge(
					fmt.Sprintf("request body too large; maximum is %d MB", maxBytes/(1024*1024)))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}
