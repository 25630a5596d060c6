package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amizuno/winscope/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"record not found", &ErrRecordNotFound{ID: "abc123"}, http.StatusNotFound},
		{"validation failure", &ErrValidation{Field: "stage", Message: "unknown stage"}, http.StatusBadRequest},
		{"illegal transition", &types.InvalidTransitionError{From: types.StageWon, To: types.StageScored}, http.StatusConflict},
		{"wrapped transition", fmt.Errorf("advance failed: %w", &types.InvalidTransitionError{From: types.StageDiscovered, To: types.StageWon}), http.StatusConflict},
		{"unknown error", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(r))

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Bearer ")
	assert.Empty(t, bearerToken(r))
}

func TestExtractClientID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", extractClientID(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", extractClientID(r), "forwarded address wins behind a proxy")

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", extractClientID(bare))
}
