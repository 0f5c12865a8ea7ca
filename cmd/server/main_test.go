package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"artlicor/backend/internal/config"
)

func TestNewAppInMemory(t *testing.T) {
	application, err := newApp(context.Background(), config.Defaults(), zap.NewNop())
	require.NoError(t, err)
	defer application.close(zap.NewNop())

	rec := httptest.NewRecorder()
	application.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Settings struct {
			StoreName string `json:"store_name"`
		} `json:"settings"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Adega Art Licor", body.Settings.StoreName)
}

func TestNewAppUsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Defaults()
	cfg.RedisAddr = mr.Addr()

	application, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer application.close(zap.NewNop())
	assert.Len(t, application.closers, 1)

	rec := httptest.NewRecorder()
	application.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=cerveja", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, mr.Keys())
}

func TestNewAppFallsBackWhenRedisIsDown(t *testing.T) {
	cfg := config.Defaults()
	cfg.RedisAddr = "127.0.0.1:1"

	application, err := newApp(context.Background(), cfg, zap.NewNop())

	require.NoError(t, err)
	assert.Empty(t, application.closers)
}

func TestNewAppRejectsBadTimezone(t *testing.T) {
	cfg := config.Defaults()
	cfg.Timezone = "Nowhere/Land"

	_, err := newApp(context.Background(), cfg, zap.NewNop())

	assert.Error(t, err)
}
