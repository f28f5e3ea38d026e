package handlers

import (
	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/response"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	csrfService *services.CSRFService
	validator   *validation.Validator
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, csrfService *services.CSRFService, v *validation.Validator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		csrfService: csrfService,
		validator:   v,
		logger:      logger,
	}
}

// CSRFToken returns the anti-forgery token of the current session
// @Summary Get CSRF token
// @Description Returns the token to send as X-CSRF-Token on state-changing requests. Creates a session when none exists.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/csrf [get]
func (h *AuthHandler) CSRFToken(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	token, err := h.csrfService.GetToken(c.UserContext(), sess)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "CSRF token issued", fiber.Map{"csrf_token": token})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with username or email. Replaces the session ID on success.
// @Tags Auth
// @Accept json
// @Produce json
// @Param X-CSRF-Token header string true "CSRF token"
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	sess := middleware.SessionFrom(c)
	user, err := h.authService.Login(c.UserContext(), sess, req.Identifier, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return response.Success(c, "Login successful", user.ToResponse())
}

// Logout handles user logout
// @Summary Logout user
// @Description Destroy the session and clear the cookie
// @Tags Auth
// @Produce json
// @Param X-CSRF-Token header string true "CSRF token"
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.SessionFrom(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Logout successful", nil)
}

// Me returns current user info
// @Summary Get current user
// @Description Get information about the logged-in user
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "User retrieved successfully", user.ToResponse())
}
