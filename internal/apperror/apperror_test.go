package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromPassesThroughAppErrors(t *testing.T) {
	original := NotFound("No tour found with that ID")
	got := From(original)
	if got != original {
		t.Fatalf("From() = %v, want the original error", got)
	}
}

func TestFromUnwrapsWrappedAppErrors(t *testing.T) {
	original := BadRequest("Invalid ID format")
	wrapped := fmt.Errorf("parsing request: %w", original)

	got := From(wrapped)
	if got.Code != http.StatusBadRequest || got.Message != original.Message {
		t.Fatalf("From() = (%d, %q), want (%d, %q)", got.Code, got.Message, http.StatusBadRequest, original.Message)
	}
}

func TestFromClassifiesUnknownAsInternal(t *testing.T) {
	got := From(errors.New("connection refused"))
	if got.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want %d", got.Code, http.StatusInternalServerError)
	}
	if got.Message == "connection refused" {
		t.Fatal("internal errors must not leak their cause to clients")
	}
	if got.Unwrap() == nil {
		t.Fatal("the cause must stay reachable for logging")
	}
}

func TestFromNil(t *testing.T) {
	if got := From(nil); got != nil {
		t.Fatalf("From(nil) = %v, want nil", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(http.StatusConflict, "A user with this email already exists", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error must match its cause with errors.Is")
	}
	if err.Error() != "A user with this email already exists: duplicate key" {
		t.Fatalf("unexpected Error(): %q", err.Error())
	}
}
