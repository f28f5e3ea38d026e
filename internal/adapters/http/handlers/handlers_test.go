package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/response"
)

func errorResponse(t *testing.T, err error) (int, response.Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, zap.NewNop(), err)
	})

	resp, testErr := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidQuantity, fiber.StatusBadRequest},
		{domain.Validationf("title is required"), fiber.StatusBadRequest},
		{domain.ErrSessionExpired, fiber.StatusUnauthorized},
		{domain.ErrForbidden, fiber.StatusForbidden},
		{fmt.Errorf("%w: requested 5, available 2", domain.ErrInsufficientStock), fiber.StatusConflict},
		{domain.ErrItemNotFound, fiber.StatusNotFound},
		{domain.ErrIntegrity, fiber.StatusInternalServerError},
		{errors.New("driver: bad connection"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		code, body := errorResponse(t, tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.False(t, body.Success)
	}
}

func TestRespondErrorHidesLoginFailureReason(t *testing.T) {
	for _, err := range []error{domain.ErrInvalidCredentials, domain.ErrAccountLocked, domain.ErrAccountDisabled} {
		code, body := errorResponse(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, code)
		assert.Equal(t, "INVALID_CREDENTIALS", body.Code)
		assert.Equal(t, genericLoginFailure, body.Error)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	_, body := errorResponse(t, errors.New("pq: relation users does not exist"))
	assert.NotContains(t, body.Error, "relation")
	assert.Empty(t, body.Code)
}

func TestRespondErrorCarriesCode(t *testing.T) {
	_, body := errorResponse(t, fmt.Errorf("%w: requested 5, available 2", domain.ErrInsufficientStock))
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	assert.Contains(t, body.Error, "available 2")
}
