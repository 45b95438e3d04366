package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "busy")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"busy"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Locale string `json:"locale"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"locale":"en"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if payload.Locale != "en" {
		t.Fatalf("expected en, got %q", payload.Locale)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err != nil {
		t.Fatalf("empty body should be accepted: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err == nil {
		t.Fatal("expected error for truncated body")
	}
}
