package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bookifyme/internal/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("root", func(t *testing.T) {
		h := handler.NewHealthHandler(nil, testLogger())
		rr := httptest.NewRecorder()
		h.HandleRoot(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "1.0", body["version"])
		assert.Contains(t, body["message"], "BookifyMe")
	})

	t.Run("healthy", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return nil }), testLogger())
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("closed") }), testLogger())
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"unhealthy"}`, rr.Body.String())
	})
}

func TestFallbackHandlers(t *testing.T) {
	rr, env := serve(t, http.HandlerFunc(handler.HandleNotFound), newRequest(http.MethodGet, "/nope", "", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Error)

	rr, env = serve(t, http.HandlerFunc(handler.HandleMethodNotAllowed), newRequest(http.MethodPatch, "/health", "", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "method_not_allowed", env.Error)
}
