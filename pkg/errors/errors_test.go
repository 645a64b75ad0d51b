package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }
func (e *queryError) Unwrap() error { return ErrInvalidInput }

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrInternal, http.StatusTeapot, "tea"), http.StatusTeapot},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"wrapped invalid input", fmt.Errorf("compiling: %w", &queryError{"Query cannot be empty"}), http.StatusBadRequest},
		{"index down", fmt.Errorf("executing: %w", ErrIndexUnavailable), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Query cannot be empty", PublicMessage(&queryError{"Query cannot be empty"}))
	assert.Equal(t, "limit too big", PublicMessage(Newf(ErrInvalidInput, http.StatusBadRequest, "limit %s", "too big")))
	assert.Equal(t, "Service Unavailable", PublicMessage(ErrIndexUnavailable))
	assert.Equal(t, "Internal Server Error", PublicMessage(errors.New("secret detail")))
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(ErrIndexUnavailable, http.StatusServiceUnavailable, "postgres down")
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.Equal(t, "text index unavailable: postgres down", err.Error())
}
