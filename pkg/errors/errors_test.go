package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidQuery, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{ErrConsistencyViolation, http.StatusInternalServerError},
		{fmt.Errorf("loading: %w", ErrUnauthorized), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := HTTPStatusCode(tc.err); got != tc.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAppErrorOverridesStatus(t *testing.T) {
	err := New(ErrNotFound, http.StatusGone, "restaurant removed")
	if got := HTTPStatusCode(err); got != http.StatusGone {
		t.Fatalf("expected %d, got %d", http.StatusGone, got)
	}
	if got := Message(err); got != "restaurant removed" {
		t.Errorf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if got := Message(wrapped); got != "restaurant removed" {
		t.Errorf("unexpected wrapped message %q", got)
	}
}
