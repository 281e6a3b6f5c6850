package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFail_UsesStatusFromError(t *testing.T) {
	rec := httptest.NewRecorder()
	status := Fail(rec, NewError(http.StatusBadRequest, "Invalid file type"))

	if status != http.StatusBadRequest || rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d/%d", status, rec.Code)
	}
	if body := rec.Body.String(); body != "{\"error\":\"Invalid file type\"}\n" {
		t.Errorf("Unexpected body %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Unexpected content type %s", ct)
	}
}

func TestFail_PlainErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	if status := Fail(rec, errors.New("disk on fire")); status != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", status)
	}
}

func TestStatusOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewError(http.StatusNotFound, "upload not found"))
	if status := StatusOf(err); status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}
}

func TestError_Is(t *testing.T) {
	a := NewError(http.StatusNotFound, "upload not found")
	b := NewError(http.StatusNotFound, "upload not found")
	c := NewError(http.StatusGone, "upload not found")

	if !errors.Is(a, b) {
		t.Error("Errors with equal code and message should match")
	}
	if errors.Is(a, c) {
		t.Error("Errors with different codes should not match")
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := JSON(rec, http.StatusCreated, map[string]int{"n": 1}); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if rec.Code != http.StatusCreated || rec.Body.String() != "{\"n\":1}\n" {
		t.Errorf("Unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
