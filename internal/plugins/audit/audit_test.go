package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
	"github.com/keyxmakerx/folio/internal/templates/layouts"
)

// --- Mock Repository ---

type mockAuditRepo struct {
	logFn  func(ctx context.Context, entry *Entry) error
	listFn func(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error)
	logged []*Entry
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *Entry) error {
	m.logged = append(m.logged, entry)
	if m.logFn != nil {
		return m.logFn(ctx, entry)
	}
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, limit, offset)
	}
	return nil, 0, nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo AuditRepository) *auditService {
	return &auditService{repo: repo, now: func() time.Time { return fixedNow }}
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status code %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- Service ---

func TestLog_StampsCreatedAt(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := newTestService(repo)

	entry := &Entry{Action: ActionContentCreated, ResourceType: ResourceContent, ResourceID: "c1"}
	if err := svc.Log(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected created_at %v, got %v", fixedNow, entry.CreatedAt)
	}
	if len(repo.logged) != 1 {
		t.Errorf("expected one repo write, got %d", len(repo.logged))
	}
}

func TestLog_RequiresActionAndResourceType(t *testing.T) {
	svc := newTestService(&mockAuditRepo{})

	assertAppError(t, svc.Log(context.Background(), &Entry{ResourceType: ResourceMedia}), http.StatusBadRequest)
	assertAppError(t, svc.Log(context.Background(), &Entry{Action: ActionMediaDeleted}), http.StatusBadRequest)
}

func TestLog_RepoFailureIsInternal(t *testing.T) {
	repo := &mockAuditRepo{logFn: func(context.Context, *Entry) error { return errors.New("db down") }}
	err := newTestService(repo).Log(context.Background(), &Entry{Action: ActionMediaSwept, ResourceType: ResourceMedia})
	assertAppError(t, err, http.StatusInternalServerError)
}

func TestList_ClampsPage(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &mockAuditRepo{listFn: func(_ context.Context, _ ListFilter, limit, offset int) ([]Entry, int, error) {
		gotLimit, gotOffset = limit, offset
		return []Entry{}, 0, nil
	}}
	svc := newTestService(repo)

	if _, _, err := svc.List(context.Background(), ListFilter{Page: -3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != perPage || gotOffset != 0 {
		t.Errorf("expected limit %d offset 0, got %d/%d", perPage, gotLimit, gotOffset)
	}

	svc.List(context.Background(), ListFilter{Page: 3})
	if gotOffset != 2*perPage {
		t.Errorf("expected offset %d, got %d", 2*perPage, gotOffset)
	}
}

// --- Recorder middleware ---

func runRecorder(t *testing.T, svc AuditService, h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/m1", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(layouts.EchoKeyRequestID, "req-1")
	return rec, Recorder(svc)(h)(c)
}

func TestRecorder_WritesNotedEntryOnSuccess(t *testing.T) {
	repo := &mockAuditRepo{}
	_, err := runRecorder(t, newTestService(repo), func(c echo.Context) error {
		Note(c, ActionMediaDeleted, ResourceMedia, "m1", nil)
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.logged) != 1 {
		t.Fatalf("expected one entry, got %d", len(repo.logged))
	}
	got := repo.logged[0]
	if got.Action != ActionMediaDeleted || got.ResourceID != "m1" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.RemoteIP != "203.0.113.5" || got.RequestID != "req-1" {
		t.Errorf("expected request metadata, got ip=%q id=%q", got.RemoteIP, got.RequestID)
	}
}

func TestRecorder_SkipsFailedRequests(t *testing.T) {
	repo := &mockAuditRepo{}
	_, err := runRecorder(t, newTestService(repo), func(c echo.Context) error {
		Note(c, ActionMediaDeleted, ResourceMedia, "m1", nil)
		return apperror.NewNotFound("media not found")
	})
	assertAppError(t, err, http.StatusNotFound)
	if len(repo.logged) != 0 {
		t.Errorf("expected no entry for a failed request, got %d", len(repo.logged))
	}
}

func TestRecorder_IgnoresUnnotedRequests(t *testing.T) {
	repo := &mockAuditRepo{}
	runRecorder(t, newTestService(repo), func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if len(repo.logged) != 0 {
		t.Errorf("expected no entry, got %d", len(repo.logged))
	}
}

func TestRecorder_AuditFailureDoesNotFailRequest(t *testing.T) {
	repo := &mockAuditRepo{logFn: func(context.Context, *Entry) error { return errors.New("db down") }}
	rec, err := runRecorder(t, newTestService(repo), func(c echo.Context) error {
		Note(c, ActionMediaDeleted, ResourceMedia, "m1", nil)
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("expected request to succeed, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// --- Repository ---

func TestRepository_LogAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs(ActionContentStatusChanged, ResourceContent, "c1", "203.0.113.5", "req-1",
			`{"status":"published"}`, fixedNow).
		WillReturnResult(sqlmock.NewResult(7, 1))

	entry := &Entry{
		Action: ActionContentStatusChanged, ResourceType: ResourceContent, ResourceID: "c1",
		RemoteIP: "203.0.113.5", RequestID: "req-1",
		Details: map[string]any{"status": "published"}, CreatedAt: fixedNow,
	}
	if err := repo.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if entry.ID != 7 {
		t.Errorf("expected id 7, got %d", entry.ID)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_log WHERE resource_type = ? AND resource_id = ?")).
		WithArgs(ResourceContent, "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_log WHERE resource_type = ? AND resource_id = ?")).
		WithArgs(ResourceContent, "c1", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "action", "resource_type", "resource_id", "remote_ip", "request_id", "details", "created_at",
		}).
			AddRow(7, ActionContentStatusChanged, ResourceContent, "c1", "203.0.113.5", "req-1", `{"status":"published"}`, fixedNow).
			AddRow(6, ActionContentCreated, ResourceContent, "c1", "", "", "not json", fixedNow))

	entries, total, err := repo.List(context.Background(), ListFilter{ResourceType: ResourceContent, ResourceID: "c1"}, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Details["status"] != "published" {
		t.Errorf("expected decoded details, got %v", entries[0].Details)
	}
	if _, ok := entries[1].Details["_parse_error"]; !ok {
		t.Errorf("expected parse error marker for bad details, got %v", entries[1].Details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
