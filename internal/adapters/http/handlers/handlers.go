package handlers

import (
	"errors"
	"strconv"

	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/response"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// genericLoginFailure hides which of the login checks failed
const genericLoginFailure = "Invalid username or password"

// respondError writes the error envelope for a service error.
// Internal and integrity failures are logged and answered with a generic message.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	if errors.Is(err, domain.ErrInvalidCredentials) ||
		errors.Is(err, domain.ErrAccountLocked) ||
		errors.Is(err, domain.ErrAccountDisabled) {
		return response.Unauthorized(c, domain.ErrInvalidCredentials.Code, genericLoginFailure)
	}

	code := domain.CodeOf(err)
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return response.BadRequest(c, code, err.Error())
	case domain.KindAuth:
		return response.Unauthorized(c, code, err.Error())
	case domain.KindForbidden:
		return response.Forbidden(c, code, err.Error())
	case domain.KindConflict:
		return response.Conflict(c, code, err.Error())
	case domain.KindNotFound:
		return response.NotFound(c, code, err.Error())
	}

	actor := middleware.ActorFrom(c)
	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Uint("actor_id", actor.UserID),
		zap.String("kind", domain.KindOf(err).String()),
		zap.Error(err),
	)
	return response.InternalServerError(c, "Something went wrong, please try again later")
}

// parseID reads a positive numeric route parameter
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, domain.Validationf("invalid %s", name)
	}
	return uint(id), nil
}

// bind parses the request body into dst and runs struct validation
func bind(c *fiber.Ctx, v *validation.Validator, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return domain.Validationf("invalid request body")
	}
	return v.Validate(dst)
}
