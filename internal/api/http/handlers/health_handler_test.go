package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func newHealthApp() *fiber.App {
	app := fiber.New()
	handler := NewHealthHandler("helpdesk", "test", &persistence.Postgres{}, &persistence.Redis{})
	app.Get("/health/live", handler.Live)
	app.Get("/health/ready", handler.Ready)
	return app
}

func TestHealthLive(t *testing.T) {
	app := newHealthApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthReadyReportsMissingDependencies(t *testing.T) {
	app := newHealthApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", payload.Error.Code)
	assert.Contains(t, payload.Error.Details, "postgres")
	assert.Contains(t, payload.Error.Details, "redis")
}
