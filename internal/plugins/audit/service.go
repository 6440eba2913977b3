package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// perPage is the number of audit entries returned per page.
const perPage = 50

// AuditService handles business logic for the audit log.
type AuditService interface {
	// Log records an entry. Callers may ignore the error: audit failures
	// are logged here and must not block the primary operation.
	Log(ctx context.Context, entry *Entry) error

	// List returns a page of the activity feed plus the total count.
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
	now  func() time.Time
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Log validates and persists an entry.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if entry.ResourceType == "" {
		return apperror.NewBadRequest("resource type is required for audit entry")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("action", entry.Action),
			slog.String("resource_id", entry.ResourceID),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

// List returns a page of entries. Pages are 1-indexed; invalid page
// numbers are clamped to 1.
func (s *auditService) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	entries, total, err := s.repo.List(ctx, filter, perPage, (filter.Page-1)*perPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit entries: %w", err))
	}
	return entries, total, nil
}
