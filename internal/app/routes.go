package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/folio/internal/database"
	"github.com/keyxmakerx/folio/internal/plugins/audit"
	"github.com/keyxmakerx/folio/internal/plugins/auth"
	"github.com/keyxmakerx/folio/internal/plugins/content"
	"github.com/keyxmakerx/folio/internal/plugins/media"
	"github.com/keyxmakerx/folio/internal/plugins/media/webpenc"
	"github.com/keyxmakerx/folio/internal/plugins/site"
)

// RegisterRoutes builds every plugin and registers its routes. This is the
// single place where plugins are wired together; when a new plugin is
// added, its routes are registered here.
func (a *App) RegisterRoutes() error {
	e := a.Echo
	cfg := a.Config

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Every admin endpoint lives under /api/v1 behind the bearer token.
	// Successful mutations are written to the audit log.
	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))
	admin := e.Group("/api/v1",
		auth.RequireAdmin(cfg.Admin.TokenHash, cfg.IsDevelopment()),
		audit.Recorder(auditService),
	)
	audit.RegisterRoutes(admin, audit.NewHandler(auditService))

	// --- media plugin ---
	store, err := media.NewFileStore(cfg.Media.UploadsPath)
	if err != nil {
		return fmt.Errorf("media store: %w", err)
	}
	encoder, err := webpenc.New(cfg.Media.WebPQuality)
	if err != nil {
		return fmt.Errorf("webp encoder: %w", err)
	}
	mediaRepo := media.NewMediaRepository(a.DB)
	generator := media.NewVariantGenerator(store, encoder, nil)
	mediaService := media.NewMediaService(mediaRepo, store, generator,
		cfg.Media.MaxSize, cfg.Media.RetentionDays)
	cleanupService := media.NewCleanupService(mediaRepo, store)
	media.RegisterRoutes(e, admin,
		media.NewHandler(mediaService, cleanupService, cfg.Media.RetentionDays),
		cfg.Media.MaxSize)

	// --- content plugin ---
	var cache content.PublicCache
	if a.Redis != nil {
		cache = content.NewRedisCache(a.Redis, cfg.Redis.CacheTTL)
	}
	contentService := content.NewContentService(
		content.NewContentRepository(a.DB), cache,
		cfg.Content.Languages, cfg.Content.DefaultLanguage)
	content.RegisterRoutes(e, admin, content.NewHandler(contentService))

	// --- public site ---
	// Registered last; its /:lang routes only see what the static
	// prefixes above did not claim.
	site.RegisterRoutes(e, site.NewHandler(contentService))

	return nil
}

// healthz reports whether MariaDB and Redis are reachable.
func (a *App) healthz(c echo.Context) error {
	if err := database.Health(c.Request().Context(), a.DB, a.Redis); err != nil {
		slog.Warn("health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
