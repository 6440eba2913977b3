package media

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/validation"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.WriteField("alt_text", "a tiny square")
	w.Close()
	return &body, w.FormDataContentType()
}

func TestHandlerUpload_Created(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	h := NewHandler(svc, nil, 30)
	e := newTestEcho()

	body, ct := multipartUpload(t, "square.png", "image/png", testImage(t, "png", 500, 500))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()

	if err := h.Upload(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		ID      string            `json:"id"`
		Kind    string            `json:"kind"`
		AltText string            `json:"alt_text"`
		URLs    map[string]string `json:"variant_urls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != "raster" || resp.AltText != "a tiny square" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.URLs[VariantThumb] != "/media/"+resp.ID+"/thumb" {
		t.Errorf("expected thumb url, got %v", resp.URLs)
	}
}

func TestHandlerUpload_ChunkedBodyOverLimit(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	h := bodyLimitMiddleware(1024)(NewHandler(svc, nil, 30).Upload)
	e := newTestEcho()

	body, ct := multipartUpload(t, "big.png", "image/png", bytes.Repeat([]byte{0xff}, 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set(echo.HeaderContentType, ct)
	req.ContentLength = -1 // chunked; size unknown up front

	err := h(e.NewContext(req, httptest.NewRecorder()))
	assertAppError(t, err, http.StatusRequestEntityTooLarge)
}

func TestHandlerServe_SoftDeletedIs404(t *testing.T) {
	deleted := fixedNow
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, StorageKey: "k.png", MimeType: "image/png", DeletedAt: &deleted}, nil
		},
	}
	svc, _ := newTestService(t, repo)
	h := NewHandler(svc, nil, 30)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/media/m-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("m-1")

	assertAppError(t, h.Serve(c), 404)
}

func TestHandlerServeSize_PicksVariant(t *testing.T) {
	asset := &MediaAsset{
		ID: "m-1", StorageKey: "2025/06/x-a.jpg", MimeType: "image/jpeg",
		Variants: VariantSet{
			Thumb: &Variant{Name: VariantThumb, Path: "2025/06/x-a_thumb.webp", Width: 400, Height: 300},
		},
	}
	repo := &mockMediaRepo{
		findByIDFn: func(context.Context, string) (*MediaAsset, error) { return asset, nil },
	}
	svc, store := newTestService(t, repo)
	if err := store.Write(asset.Variants.Thumb.Path, []byte("thumb-bytes")); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc, nil, 30)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/media/m-1/thumb", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "size")
	c.SetParamValues("m-1", "thumb")

	if err := h.ServeSize(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "thumb-bytes" {
		t.Errorf("expected thumb contents, got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("expected image/webp, got %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Error("expected cache headers")
	}
}

func TestHandlerList_RejectsOversizedPage(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	h := NewHandler(svc, nil, 30)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?per_page=1000", nil)
	rec := httptest.NewRecorder()
	assertAppError(t, h.List(e.NewContext(req, rec)), 422)
}

func TestHandlerCleanup_UsesQueryRetention(t *testing.T) {
	var gotDays int
	cleanup := cleanupFunc(func(_ context.Context, days int) (SweepResult, error) {
		gotDays = days
		return SweepResult{Cleaned: 2, Cutoff: time.Now()}, nil
	})
	h := NewHandler(nil, cleanup, 30)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/cleanup?retention_days=7", nil)
	rec := httptest.NewRecorder()
	if err := h.Cleanup(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDays != 7 {
		t.Errorf("expected retention 7, got %d", gotDays)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/media/cleanup", nil)
	rec = httptest.NewRecorder()
	if err := h.Cleanup(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDays != 30 {
		t.Errorf("expected default retention 30, got %d", gotDays)
	}
}

// cleanupFunc adapts a function to CleanupService.
type cleanupFunc func(ctx context.Context, retentionDays int) (SweepResult, error)

func (f cleanupFunc) RunSweep(ctx context.Context, retentionDays int) (SweepResult, error) {
	return f(ctx, retentionDays)
}
