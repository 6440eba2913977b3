package audit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/templates/layouts"
)

// echoKeyPending holds the entry a handler noted for the current request.
const echoKeyPending = "audit_pending"

// Note marks the current request as an auditable action. The entry is only
// written if the handler returns without error; see Recorder.
func Note(c echo.Context, action, resourceType, resourceID string, details map[string]any) {
	c.Set(echoKeyPending, &Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	})
}

// Recorder returns middleware that persists the entry noted by the handler
// once the request has succeeded. Write failures are logged by the service
// and otherwise ignored.
func Recorder(svc AuditService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			entry, ok := c.Get(echoKeyPending).(*Entry)
			if !ok || c.Response().Status >= http.StatusBadRequest {
				return nil
			}

			entry.RemoteIP = c.RealIP()
			if id, ok := c.Get(layouts.EchoKeyRequestID).(string); ok {
				entry.RequestID = id
			}
			// The response is already written; a client disconnect must not
			// drop the record.
			ctx := context.WithoutCancel(c.Request().Context())
			if err := svc.Log(ctx, entry); err != nil {
				slog.Warn("audit entry dropped",
					slog.String("action", entry.Action),
					slog.Any("error", err),
				)
			}
			return nil
		}
	}
}
