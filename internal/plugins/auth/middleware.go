// Package auth guards the admin API with a single bearer token. Only the
// bcrypt hash of the token is configured; the token itself never touches
// disk on the server.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// MinTokenLength is the shortest token HashToken accepts.
const MinTokenLength = 32

var authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "folio_admin_auth_failures_total",
	Help: "Rejected admin API requests by reason.",
}, []string{"reason"})

// ErrTokenTooShort is returned by HashToken for weak tokens.
var ErrTokenTooShort = fmt.Errorf("admin token must be at least %d characters", MinTokenLength)

// HashToken returns the bcrypt hash to put in ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	if len(token) < MinTokenLength {
		return "", ErrTokenTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token: %w", err)
	}
	return string(hash), nil
}

// RequireAdmin returns middleware that checks "Authorization: Bearer <token>"
// against tokenHash. An empty hash is only accepted when dev is true, in
// which case every request passes and a warning is logged once.
func RequireAdmin(tokenHash string, dev bool) echo.MiddlewareFunc {
	if tokenHash == "" {
		if !dev {
			// Config validation rejects this outside development; fail closed.
			return func(echo.HandlerFunc) echo.HandlerFunc {
				return func(echo.Context) error {
					return apperror.NewInternal(errors.New("admin token hash not configured"))
				}
			}
		}
		slog.Warn("ADMIN_TOKEN_HASH is empty; admin API is open (development only)")
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	hash := []byte(tokenHash)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				authFailuresTotal.WithLabelValues("missing").Inc()
				return apperror.NewUnauthorized("admin token required")
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				authFailuresTotal.WithLabelValues("malformed").Inc()
				return apperror.NewUnauthorized("invalid authorization format, use: Bearer <token>")
			}

			if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
				authFailuresTotal.WithLabelValues("mismatch").Inc()
				slog.Warn("admin auth failed",
					slog.String("remote_ip", c.RealIP()),
					slog.String("path", c.Request().URL.Path),
				)
				return apperror.NewUnauthorized("invalid admin token")
			}
			return next(c)
		}
	}
}
