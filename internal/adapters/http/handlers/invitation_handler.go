package handlers

import (
	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/pagination"
	"ibc-intranet/internal/pkg/response"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InvitationHandler handles invitation and invited registration endpoints
type InvitationHandler struct {
	invitationService *services.InvitationService
	validator         *validation.Validator
	logger            *zap.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService *services.InvitationService, v *validation.Validator, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		validator:         v,
		logger:            logger,
	}
}

// Issue invites an email address with a role no higher than the caller's
// @Summary Issue invitation
// @Tags Invitations
// @Accept json
// @Produce json
// @Param body body services.IssueInput true "Invitation"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /invitations [post]
func (h *InvitationHandler) Issue(c *fiber.Ctx) error {
	var req services.IssueInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	issued, err := h.invitationService.Issue(c.UserContext(), middleware.ActorFrom(c), req.Email, req.Role)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Invitation sent successfully", issued)
}

// List lists invitations
// @Summary List invitations
// @Tags Invitations
// @Produce json
// @Param status query string false "open, used or expired"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /invitations [get]
func (h *InvitationHandler) List(c *fiber.Ctx) error {
	status := domain.InvitationStatus(c.Query("status"))
	switch status {
	case "", domain.InvitationOpen, domain.InvitationUsed, domain.InvitationExpired:
	default:
		return respondError(c, h.logger, domain.Validationf("unknown status %q", status))
	}

	params := pagination.GetParams(c)
	invitations, total, err := h.invitationService.List(c.UserContext(), status, params)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Invitations retrieved successfully", pagination.NewResponse(invitations, params, total))
}

// Register redeems an invitation token and creates the account
// @Summary Register with invitation
// @Description Creates the account with the invited role. The token can be used once.
// @Tags Invitations
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /invitations/register [post]
func (h *InvitationHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	user, err := h.invitationService.Register(c.UserContext(), req.Token, req.Username, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Registration successful", user.ToResponse())
}
