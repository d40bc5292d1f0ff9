package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrExternalTool, "downloading", "fetch item", "exit status 1", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "converting", "", "", errors.New("boom"))
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := Wrap(ErrValidation, "preparing", "parse selection", "empty index list", nil)
	details := Details(err)
	want := "preparing: parse selection: empty index list"
	if details.Message != want {
		t.Fatalf("Details = %q, want %q", details.Message, want)
	}
}

func TestIsCanceled(t *testing.T) {
	if !IsCanceled(Wrap(ErrCanceled, "downloading", "", "", nil)) {
		t.Error("ErrCanceled marker should classify as canceled")
	}
	if !IsCanceled(context.Canceled) {
		t.Error("context.Canceled should classify as canceled")
	}
	if IsCanceled(Wrap(ErrExternalTool, "downloading", "", "", nil)) {
		t.Error("tool error must not classify as canceled")
	}
}

func TestWrapPreservesWrappedError(t *testing.T) {
	inner := errors.New("connection reset")
	err := Wrap(ErrTransient, "mapping", "catalog query", "", inner)
	if !errors.Is(err, inner) {
		t.Fatalf("wrapped error lost: %v", err)
	}
}
