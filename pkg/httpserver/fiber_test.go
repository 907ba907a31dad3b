package httpserver

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFiberServer_HealthEndpoints(t *testing.T) {
	ready := false
	app := InitFiberServer(Config{AppName: "test-app", Ready: func() bool { return ready }}, nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/manage/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/manage/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	ready = true
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/manage/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestInitFiberServer_ErrorsAreJSON(t *testing.T) {
	app := InitFiberServer(Config{AppName: "test-app"}, nil)
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("storage exploded")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{path: "/nope", status: fiber.StatusNotFound, msg: "Cannot GET /nope"},
		{path: "/fail", status: fiber.StatusInternalServerError, msg: "storage exploded"},
		{path: "/panic", status: fiber.StatusInternalServerError, msg: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}
