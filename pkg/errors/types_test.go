package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}

func TestConstructors_StatusMapping(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/session/abc/url", nil)

	tests := []struct {
		name       string
		err        *Error
		kind       Kind
		httpStatus int
		status     int
	}{
		{"unknown command", UnknownCommand(req), KindUnknownCommand, http.StatusNotFound, StatusUnknownCommand},
		{"session not found", SessionNotFound(req, "abc"), KindVariableResourceNotFound, http.StatusNotFound, StatusNoSuchDriver},
		{"element not found", ElementNotFound(req, "e1"), KindVariableResourceNotFound, http.StatusNotFound, StatusStaleElementReference},
		{"invalid method", InvalidCommandMethod(req), KindInvalidCommandMethod, http.StatusMethodNotAllowed, StatusUnknownCommand},
		{"invalid parameters", InvalidParameters("missing %q", "url"), KindInvalidParameters, http.StatusBadRequest, StatusUnknownError},
		{"session not created", SessionNotCreated(errors.New("boom")), KindBackendFailure, http.StatusInternalServerError, StatusSessionNotCreated},
		{"internal", Internal(errors.New("boom")), KindInternal, http.StatusInternalServerError, StatusUnknownError},
		{"timeout", New(ErrCodeTimeout, StatusTimeout, "slow"), KindBackendFailure, http.StatusRequestTimeout, StatusTimeout},
		{"script timeout", New(ErrCodeScriptTimeout, StatusScriptTimeout, "slow"), KindBackendFailure, http.StatusRequestTimeout, StatusScriptTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.HTTPStatus != tt.httpStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.httpStatus)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Status == StatusSuccess {
				t.Error("protocol errors must carry a nonzero wire status")
			}
			if len(tt.err.Stack) == 0 {
				t.Error("Stack should be captured")
			}
		})
	}
}

func TestSessionNotFound_MessageAndRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/session/doesnotexist", nil)
	err := SessionNotFound(req, "doesnotexist")

	if !strings.Contains(err.Message, "not found") {
		t.Errorf("Message = %q, want it to mention not found", err.Message)
	}
	if err.Request != "GET /session/doesnotexist" {
		t.Errorf("Request = %q", err.Request)
	}
}

func TestRender_Envelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/status", nil)
	rec := httptest.NewRecorder()

	InvalidCommandMethod(req).Render(rec)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeEnvelope(t, rec)
	if body["sessionId"] != nil {
		t.Errorf("sessionId = %v, want null", body["sessionId"])
	}
	if body["status"].(float64) != StatusUnknownCommand {
		t.Errorf("status = %v", body["status"])
	}
	value, ok := body["value"].(map[string]any)
	if !ok {
		t.Fatalf("value = %T, want object", body["value"])
	}
	if msg, _ := value["message"].(string); !strings.Contains(msg, "PUT /status") {
		t.Errorf("message = %q", msg)
	}
	if value["error"] != string(ErrCodeUnknownMethod) {
		t.Errorf("error = %v", value["error"])
	}
}

func TestRender_WithSession(t *testing.T) {
	rec := httptest.NewRecorder()
	New(ErrCodeNoSuchElement, StatusNoSuchElement, "missing").WithSession("s-1").Render(rec)

	body := decodeEnvelope(t, rec)
	if body["sessionId"] != "s-1" {
		t.Errorf("sessionId = %v, want s-1", body["sessionId"])
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWithSession_KeepsFirst(t *testing.T) {
	err := InvalidParameters("x").WithSession("a").WithSession("b")
	if err.SessionID != "a" {
		t.Errorf("SessionID = %q, want a", err.SessionID)
	}
}

func TestWrap(t *testing.T) {
	underlying := errors.New("original error")
	err := Wrap(underlying, ErrCodeJavaScript, StatusJavaScriptError, "script failed")

	if err.Underlying != underlying {
		t.Error("Underlying should be preserved")
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Error("Error string should include underlying error")
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see through Unwrap")
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap(nil, ErrCodeUnknownError, StatusUnknownError, "test"); err != nil {
		t.Error("Wrap of nil should return nil")
	}
}

func TestWithContext(t *testing.T) {
	err := InvalidParameters("bad body")
	err.WithContext("field", "url")
	err.WithContext("attempt", 1)

	errStr := err.Error()
	if !strings.Contains(errStr, "field: url") || !strings.Contains(errStr, "attempt: 1") {
		t.Errorf("Error string should include context, got %q", errStr)
	}
}

func TestFromBackend(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		httpStatus int
	}{
		{"no such element", browser.ErrNoSuchElement, StatusNoSuchElement, http.StatusInternalServerError},
		{"wrapped javascript", browser.WrapBackendError("execute", "eval failed", browser.ErrJavaScript), StatusJavaScriptError, http.StatusInternalServerError},
		{"script timeout", browser.ErrScriptTimeout, StatusScriptTimeout, http.StatusRequestTimeout},
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), StatusTimeout, http.StatusRequestTimeout},
		{"stale", browser.ErrStaleElement, StatusStaleElementReference, http.StatusInternalServerError},
		{"closed", browser.ErrSessionClosed, StatusNoSuchDriver, http.StatusInternalServerError},
		{"cookie", browser.ErrInvalidCookie, StatusInvalidCookieDomain, http.StatusInternalServerError},
		{"unknown", errors.New("kaput"), StatusUnknownError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromBackend(tt.err)
			if got.Kind != KindBackendFailure {
				t.Errorf("Kind = %v, want BackendFailure", got.Kind)
			}
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
			if got.HTTPStatus != tt.httpStatus {
				t.Errorf("HTTPStatus = %d, want %d", got.HTTPStatus, tt.httpStatus)
			}
			if !errors.Is(got, tt.err) {
				t.Error("translated error should wrap the backend error")
			}
		})
	}
}

func TestFromBackend_PassThrough(t *testing.T) {
	orig := InvalidParameters("nope")
	if got := FromBackend(fmt.Errorf("ctx: %w", orig)); got != orig {
		t.Error("protocol errors should pass through unchanged")
	}
	if FromBackend(nil) != nil {
		t.Error("nil should translate to nil")
	}
}

func TestAsAndIsKind(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	wrapped := fmt.Errorf("outer: %w", UnknownCommand(req))

	if !IsKind(wrapped, KindUnknownCommand) {
		t.Error("IsKind should find wrapped protocol errors")
	}
	if IsKind(errors.New("plain"), KindUnknownCommand) {
		t.Error("IsKind should be false for plain errors")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should be false")
	}
}

func TestKind_String(t *testing.T) {
	if KindInternal.String() != "InternalInconsistency" {
		t.Errorf("KindInternal = %q", KindInternal.String())
	}
	if Kind(99).String() != "InternalInconsistency" {
		t.Error("unknown kinds fall back to InternalInconsistency")
	}
}

func TestStackTrace(t *testing.T) {
	trace := Internal(errors.New("x")).StackTrace()
	if !strings.Contains(trace, "Stack trace:") {
		t.Error("StackTrace should contain header")
	}
}
