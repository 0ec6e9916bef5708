package domain

import (
	"errors"
	"testing"
)

func TestErrorIsByCode(t *testing.T) {
	wrapped := ErrMalformedText.Wrap(errors.New("boom"))

	if !errors.Is(wrapped, ErrMalformedText) {
		t.Fatalf("errors.Is(wrapped, ErrMalformedText) = false, want true")
	}
	if errors.Is(wrapped, ErrMalformedBinary) {
		t.Fatalf("errors.Is(wrapped, ErrMalformedBinary) = true, want false")
	}
}

func TestIsDataError(t *testing.T) {
	if !IsDataError(ErrMalformedText) {
		t.Errorf("IsDataError(ErrMalformedText) = false, want true")
	}
	if IsDataError(errors.New("some other error")) {
		t.Errorf("IsDataError(plain error) = true, want false")
	}
}
