package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(KindTimeout, "adapter call failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if wrapped.Error() == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestKindOf(t *testing.T) {
	plain := errors.New("not kinded")
	if KindOf(plain) != KindInternal {
		t.Fatalf("expected an unkinded error to default to KindInternal")
	}

	direct := NewError(KindValidation, "bad input")
	if KindOf(direct) != KindValidation {
		t.Fatalf("expected KindValidation, got %v", KindOf(direct))
	}

	wrapped := fmt.Errorf("context: %w", NewError(KindSlippageExceeded, "slipped"))
	if KindOf(wrapped) != KindSlippageExceeded {
		t.Fatalf("expected KindOf to see through fmt.Errorf wrapping, got %v", KindOf(wrapped))
	}
}

func TestRetriable(t *testing.T) {
	retriable := []Kind{KindUnavailable, KindTimeout, KindProtocolError, KindSlippageExceeded, KindNoQuotes}
	for _, k := range retriable {
		if !Retriable(k) {
			t.Errorf("expected %s to be retriable", k)
		}
	}
	terminal := []Kind{KindValidation, KindConflict, KindInternal, KindNotFound}
	for _, k := range terminal {
		if Retriable(k) {
			t.Errorf("expected %s to be terminal", k)
		}
	}
}
