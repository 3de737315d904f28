package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrInvalidInput, http.StatusTeapot, "custom"), http.StatusTeapot},
		{"invalid input", fmt.Errorf("limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"not ready", ErrIndexNotReady, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("wrapped: %w", ErrTimeout), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCorpusLoadWrapsBoth(t *testing.T) {
	cause := errors.New("no such file")
	err := CorpusLoad("xml/pages.xml", cause)
	if !errors.Is(err, ErrCorpusLoad) {
		t.Error("expected ErrCorpusLoad in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
}
