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

// ProjectHandler handles projects and applications
type ProjectHandler struct {
	projectService *services.ProjectService
	validator      *validation.Validator
	logger         *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *services.ProjectService, v *validation.Validator, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		validator:      v,
		logger:         logger,
	}
}

// ListProjects lists projects
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param status query string false "open or closed"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	status := domain.ProjectStatus(c.Query("status"))
	switch status {
	case "", domain.ProjectOpen, domain.ProjectClosed:
	default:
		return respondError(c, h.logger, domain.Validationf("unknown status %q", status))
	}

	params := pagination.GetParams(c)
	projects, total, err := h.projectService.ListProjects(c.UserContext(), status, params)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Projects retrieved successfully", pagination.NewResponse(projects, params, total))
}

// GetProject gets a project
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	project, err := h.projectService.GetProject(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Project retrieved successfully", project)
}

// CreateProject creates an open project
// @Summary Create project
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body services.CreateProjectInput true "Project"
// @Success 201 {object} response.Response
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req services.CreateProjectInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	project, err := h.projectService.CreateProject(c.UserContext(), middleware.ActorFrom(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Project created successfully", project)
}

// CloseProject stops accepting applications
// @Summary Close project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /projects/{id}/close [post]
func (h *ProjectHandler) CloseProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.projectService.CloseProject(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Project closed", nil)
}

// Apply submits the caller's application
// @Summary Apply to project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param body body services.ApplyInput true "Application"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /projects/{id}/applications [post]
func (h *ProjectHandler) Apply(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.ApplyInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	app, err := h.projectService.Apply(c.UserContext(), middleware.ActorFrom(c), id, req.Motivation)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Application submitted", app)
}

// ListApplications lists the applications of a project
// @Summary List applications
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Response
// @Router /projects/{id}/applications [get]
func (h *ProjectHandler) ListApplications(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	apps, err := h.projectService.ListApplications(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Applications retrieved successfully", apps)
}

// Review accepts or rejects a pending application
// @Summary Review application
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param body body services.ReviewInput true "Decision"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /projects/applications/{id}/review [post]
func (h *ProjectHandler) Review(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req services.ReviewInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	app, err := h.projectService.Review(c.UserContext(), middleware.ActorFrom(c), id, req.Accept)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Application reviewed", app)
}
