package validation

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/keyxmakerx/folio/internal/apperror"
)

func TestIsSlug(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"spring-show-2025", true},
		{"a", true},
		{"", false},
		{"Upper", false},
		{"double--hyphen", false},
		{"-leading", false},
		{"trailing-", false},
		{"под-кат", false},
		{strings.Repeat("a", MaxSlugLen), true},
		{strings.Repeat("a", MaxSlugLen+1), false},
	}
	for _, tt := range tests {
		if got := IsSlug(tt.in); got != tt.want {
			t.Errorf("IsSlug(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type createRequest struct {
	Title string `json:"title" validate:"required,max=10"`
	Slug  string `json:"slug" validate:"omitempty,slug"`
	Kind  string `query:"kind" validate:"omitempty,oneof=a b"`
}

func validationError(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", appErr.Code)
	}
	return appErr
}

func TestValidate(t *testing.T) {
	v := New()

	if err := v.Validate(&createRequest{Title: "ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	appErr := validationError(t, v.Validate(&createRequest{}))
	if appErr.Message != "title is required" {
		t.Errorf("expected JSON field name in message, got %q", appErr.Message)
	}

	appErr = validationError(t, v.Validate(&createRequest{Title: "ok", Slug: "Bad Slug"}))
	if appErr.Type != "invalid_slug" {
		t.Errorf("expected invalid_slug, got %q", appErr.Type)
	}

	appErr = validationError(t, v.Validate(&createRequest{Title: "ok", Kind: "c"}))
	if appErr.Message != "kind must be one of: a b" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}
