package response

import (
	"errors"
	"testing"
)

func TestWrapErrorDefaultsAndLogging(t *testing.T) {
	cause := errors.New("connection refused")

	appErr := WrapError(CodeServiceUnavailable, "", cause)
	if appErr.Message != "service unavailable" {
		t.Fatalf("default message mismatch: %q", appErr.Message)
	}
	if !appErr.ShouldLog() || !errors.Is(appErr, cause) {
		t.Fatalf("5xx with cause should be logged and unwrap to cause")
	}
	if appErr.Error() != "503 service unavailable: connection refused" {
		t.Fatalf("unexpected error text: %q", appErr.Error())
	}

	notFound := WrapError(CodeNotFound, "partner not found", cause)
	if notFound.ShouldLog() {
		t.Fatalf("4xx errors are not logged")
	}
	if notFound.Status() != 404 {
		t.Fatalf("status want 404 got %d", notFound.Status())
	}

	bogus := WrapError(42, "", nil)
	if bogus.Status() != CodeInternal || bogus.Message != "internal error" {
		t.Fatalf("invalid code should map to 500, got %d %q", bogus.Status(), bogus.Message)
	}
	if bogus.ShouldLog() {
		t.Fatalf("errors without cause are not logged")
	}

	var nilErr *AppError
	if nilErr.Status() != CodeInternal || nilErr.ShouldLog() || nilErr.Unwrap() != nil {
		t.Fatalf("nil AppError should be safe")
	}
}
