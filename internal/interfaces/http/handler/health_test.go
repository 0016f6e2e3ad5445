package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler("bapx-backend", "1.2.0")

	w := serveHealth(h, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[HealthResponse](t, w).Data
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "bapx-backend", body.Name)
	assert.Equal(t, "1.2.0", body.Version)
	assert.NotEmpty(t, body.GoVersion)
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := HealthCheck{Name: "database", Check: func(context.Context) error { return nil }}

	t.Run("all checks pass", func(t *testing.T) {
		w := serveHealth(NewHealthHandler("bapx-backend", "dev", ok), "/ready")

		require.Equal(t, http.StatusOK, w.Code)
		body := decode[ReadyResponse](t, w).Data
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"database": "ok"}, body.Checks)
	})

	t.Run("a failing check reports every result", func(t *testing.T) {
		failing := HealthCheck{Name: "storage", Check: func(context.Context) error {
			return errors.New("bucket unreachable")
		}}
		w := serveHealth(NewHealthHandler("bapx-backend", "dev", ok, failing), "/ready")

		requireErrorCode(t, w, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable)
		body := decode[ReadyResponse](t, w).Data
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "bucket unreachable", body.Checks["storage"])
	})

	t.Run("checks see a deadline", func(t *testing.T) {
		var hadDeadline bool
		probe := HealthCheck{Name: "cache", Check: func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}}
		w := serveHealth(NewHealthHandler("bapx-backend", "dev", probe), "/ready")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hadDeadline)
	})
}
