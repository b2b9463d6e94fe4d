package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadiness(t *testing.T) {
	h := New("test")
	h.RegisterCheck("keystore", func(context.Context) error { return nil })

	w := serve(h, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)

	h.RegisterCheck("directory", func(context.Context) error { return errors.New("unreachable") })
	w = serve(h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "up", resp.Checks["keystore"])
	assert.Equal(t, "down: unreachable", resp.Checks["directory"])
}

func TestStatus(t *testing.T) {
	w := serve(New("staging"), "/health")
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "staging", resp.Environment)
	assert.Equal(t, Version, resp.Version)
}
