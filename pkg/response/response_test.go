package response

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	notFound := NewError(404, "glasses not found")
	wrapped := fmt.Errorf("lookup: %w", notFound)

	if !errors.Is(wrapped, NewError(404, "glasses not found")) {
		t.Error("wrapped error does not match an equal error")
	}
	if errors.Is(wrapped, NewError(400, "glasses not found")) {
		t.Error("errors with different codes match")
	}

	code, ok := StatusCode(wrapped)
	if !ok || code != 404 {
		t.Errorf("StatusCode() = %d, %v; want 404, true", code, ok)
	}
	if _, ok := StatusCode(errors.New("plain")); ok {
		t.Error("StatusCode() found a code on a plain error")
	}
}
