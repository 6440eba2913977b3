package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/validation"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandlerCreate_Created(t *testing.T) {
	h := NewHandler(newTestService(newMemRepo(), nil))
	e := newTestEcho()

	req := jsonRequest(http.MethodPost, "/api/v1/content",
		`{"type":"project","translations":[{"lang":"en","title":"Oak Table","body":"<p>x</p>"}],"project":{"client_name":"Acme"}}`)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp ContentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Slug != "oak-table" || resp.Status != StatusDraft || resp.Project.ClientName != "Acme" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Completeness == nil || len(resp.Completeness.Missing) != 1 {
		t.Errorf("expected ru reported missing, got %+v", resp.Completeness)
	}
}

func TestHandlerCreate_InvalidSlugTag(t *testing.T) {
	h := NewHandler(newTestService(newMemRepo(), nil))
	e := newTestEcho()

	req := jsonRequest(http.MethodPost, "/api/v1/content", `{"type":"news","slug":"Not A Slug"}`)
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))
	assertAppError(t, err, 422)
	assertAppErrorType(t, err, "invalid_slug")
}

func TestHandlerCreate_UnknownType(t *testing.T) {
	h := NewHandler(newTestService(newMemRepo(), nil))
	e := newTestEcho()

	req := jsonRequest(http.MethodPost, "/api/v1/content", `{"type":"poem"}`)
	assertAppError(t, h.Create(e.NewContext(req, httptest.NewRecorder())), 422)
}

func TestHandlerTransition(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	item, _ := svc.Create(context.Background(), projectInput("x", map[string]string{"en": "X"}))
	h := NewHandler(svc)
	e := newTestEcho()

	req := jsonRequest(http.MethodPost, "/api/v1/content/"+item.ID+"/status", `{"status":"published"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(item.ID)

	if err := h.Transition(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp ContentItem
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != StatusPublished || resp.PublishedAt == nil {
		t.Errorf("expected published item, got %+v", resp)
	}

	req = jsonRequest(http.MethodPost, "/", `{"status":"draft"}`)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(item.ID)
	assertAppError(t, h.Transition(c), 409)
}

func TestHandlerPublicList_OnlyPublished(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()
	pub, _ := svc.Create(ctx, projectInput("shown", map[string]string{"en": "Shown", "ru": "Видно"}))
	svc.Create(ctx, projectInput("hidden", map[string]string{"en": "Hidden"}))
	svc.Transition(ctx, pub.ID, StatusPublished)

	h := NewHandler(svc)
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/content?lang=ru&type=project", nil)
	rec := httptest.NewRecorder()

	if err := h.PublicList(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []PublicItem `json:"data"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Slug != "shown" || resp.Data[0].Title != "Видно" {
		t.Errorf("unexpected public listing %+v", resp.Data)
	}
}

func TestHandlerPublicList_BadFeaturedValue(t *testing.T) {
	h := NewHandler(newTestService(newMemRepo(), nil))
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/content?featured=maybe", nil)
	assertAppError(t, h.PublicList(e.NewContext(req, httptest.NewRecorder())), 422)
}
