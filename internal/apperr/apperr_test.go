package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_MatchesKind(t *testing.T) {
	err := New(ErrNotFound, "strategy %q", "momentum")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is kind failed: %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("matched wrong kind: %v", err)
	}
	if got := err.Error(); got != `not found: strategy "momentum"` {
		t.Fatalf("message=%q", got)
	}
}

func TestBecause_MatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Because(ErrPersistence, cause, "load user %d", 7)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("kind lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestBecause_WrappedCauseStaysMatchable(t *testing.T) {
	inner := New(ErrConflict, "version moved")
	err := Because(ErrPersistence, inner, "sync order")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("nested kind lost: %v", err)
	}
}
