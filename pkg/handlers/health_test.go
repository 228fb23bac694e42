package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/config"
)

func newHealthRouter() http.Handler {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	r := chi.NewRouter()
	NewHealthHandler(cfg, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestHealthHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
}

func TestHealthHandler_Ping(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "test-version", response.Version)
	assert.Equal(t, ServiceName, response.Service)
	assert.Equal(t, runtime.Version(), response.GoVersion)
	assert.Equal(t, "test", response.Environment)
	assert.NotEmpty(t, response.Hostname)
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
