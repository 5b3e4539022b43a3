package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openpayflow/internal/config"
	"openpayflow/pkg/container"
)

func TestHealthz_ReportsHealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := &container.Container{Config: &config.Config{
		App: config.AppConfig{Version: "1.0.0"},
	}}

	r := gin.New()
	r.GET("/v1/healthz", healthz(c))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, body["uptime"])
	assert.Equal(t, "1.0.0", body["version"])
}
