package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		name   string
		send   func(c *fiber.Ctx) error
		status int
	}{
		{"bad request", func(c *fiber.Ctx) error { return BadRequest(c, "VALIDATION", "bad") }, fiber.StatusBadRequest},
		{"unauthorized", func(c *fiber.Ctx) error { return Unauthorized(c, "SESSION_EXPIRED", "login") }, fiber.StatusUnauthorized},
		{"forbidden", func(c *fiber.Ctx) error { return Forbidden(c, "FORBIDDEN", "no") }, fiber.StatusForbidden},
		{"not found", func(c *fiber.Ctx) error { return NotFound(c, "ITEM_NOT_FOUND", "gone") }, fiber.StatusNotFound},
		{"conflict", func(c *fiber.Ctx) error { return Conflict(c, "INSUFFICIENT_STOCK", "short") }, fiber.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.send)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)

			var body Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}
