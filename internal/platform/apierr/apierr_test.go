package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Invalid("confidence %d out of range", 120), http.StatusBadRequest},
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("insert: %w", ErrConflict), http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
		{New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
	}
	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.status, got.Status)
		}
	}
	if From(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}
