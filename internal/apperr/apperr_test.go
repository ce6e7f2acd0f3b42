package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(NotFound, "notebook.get", "notebook %s not found", "nb1")
	wrapped := fmt.Errorf("handler: %w", base)

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", base, NotFound},
		{"wrapped with fmt", wrapped, NotFound},
		{"plain error", errors.New("boom"), Internal},
		{"wrap helper", Wrap(ExtractionFailure, "extract", errors.New("bad pdf")), ExtractionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Internal, "op", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: InvalidInput, Op: "chat", Message: "message is required"}
	if err.Error() != "chat: message is required" {
		t.Errorf("Error() = %q", err.Error())
	}
	inner := errors.New("inner")
	err = &Error{Kind: Internal, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Unwrap should expose inner error")
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(New(InvalidInput, "q", "query is required")); got != "query is required" {
		t.Errorf("got %q", got)
	}
	if got := PublicMessage(Wrap(Internal, "db", errors.New("disk I/O"))); got != "internal error" {
		t.Errorf("internal errors must be hidden, got %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		InvalidInput:   http.StatusBadRequest,
		NotFound:       http.StatusNotFound,
		Unauthorized:   http.StatusUnauthorized,
		NoReadySources: http.StatusConflict,
		Internal:       http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}
