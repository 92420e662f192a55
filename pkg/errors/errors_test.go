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
		{"app error wins", New(ErrInternal, http.StatusTeapot, "x"), http.StatusTeapot},
		{"wrapped not found", fmt.Errorf("loading: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"stale chunk", ErrStaleChunk, http.StatusConflict},
		{"missing key", ErrMissingProcessKey, http.StatusBadRequest},
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

func TestDataErrorTitleAndText(t *testing.T) {
	err := fmt.Errorf("validating: %w", DataError(ErrMissingProcessKey))
	title, text := TitleAndText(err)
	if title != TitleDataError || text != MessageDataMissing {
		t.Errorf("got (%q, %q)", title, text)
	}
	if !errors.Is(err, ErrMissingProcessKey) {
		t.Error("expected sentinel to unwrap")
	}

	title, _ = TitleAndText(errors.New("plain"))
	if title != TitleUnknownError {
		t.Errorf("plain error title = %q", title)
	}
}
