package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/pagination"
)

// ProjectService manages projects and member applications
type ProjectService struct {
	txr    repositories.Transactor
	repo   repositories.ProjectRepository
	notify *NotificationService
	clock  clock.Clock
	logger *zap.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	txr repositories.Transactor,
	repo repositories.ProjectRepository,
	notify *NotificationService,
	clk clock.Clock,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		txr:    txr,
		repo:   repo,
		notify: notify,
		clock:  clk,
		logger: logger.Named("project"),
	}
}

// CreateProjectInput represents create project input
type CreateProjectInput struct {
	Title       string `json:"title" validate:"required,max=150"`
	Description string `json:"description"`
}

// ApplyInput represents an application to a project
type ApplyInput struct {
	Motivation string `json:"motivation" validate:"max=2000"`
}

// ReviewInput represents a review decision
type ReviewInput struct {
	Accept bool `json:"accept"`
}

// CreateProject creates an open project
func (s *ProjectService) CreateProject(ctx context.Context, actor domain.Actor, input *CreateProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.Validationf("title is required")
	}
	p := &models.Project{
		Title:       title,
		Description: input.Description,
		Status:      domain.ProjectOpen,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("project created", zap.Uint("project_id", p.ID), zap.Uint("actor_id", actor.UserID))
	return p, nil
}

// GetProject gets a project by ID
func (s *ProjectService) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrProjectNotFound)
	}
	return p, nil
}

// ListProjects lists projects, filtered by status when it is set
func (s *ProjectService) ListProjects(ctx context.Context, status domain.ProjectStatus, params *pagination.Params) ([]*models.Project, int64, error) {
	return s.repo.List(ctx, status, params)
}

// CloseProject stops a project from accepting applications
func (s *ProjectService) CloseProject(ctx context.Context, actor domain.Actor, id uint) error {
	n, err := s.repo.Close(ctx, id, s.clock.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetProject(ctx, id); err != nil {
			return err
		}
		return domain.ErrProjectClosed
	}
	s.logger.Info("project closed", zap.Uint("project_id", id), zap.Uint("actor_id", actor.UserID))
	return nil
}

// Apply records the actor's application to an open project
func (s *ProjectService) Apply(ctx context.Context, actor domain.Actor, projectID uint, motivation string) (*models.ProjectApplication, error) {
	var app *models.ProjectApplication
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, projectID)
		if err != nil {
			return notFound(err, domain.ErrProjectNotFound)
		}
		if p.Status != domain.ProjectOpen {
			return domain.ErrProjectClosed
		}

		exists, err := s.repo.HasApplication(ctx, projectID, actor.UserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateApplication
		}

		app = &models.ProjectApplication{
			ProjectID:  projectID,
			UserID:     actor.UserID,
			Motivation: strings.TrimSpace(motivation),
			Status:     domain.ApplicationPending,
		}
		return s.repo.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project application submitted", zap.Uint("project_id", projectID), zap.Uint("user_id", actor.UserID))
	return app, nil
}

// ListApplications lists the applications of a project
func (s *ProjectService) ListApplications(ctx context.Context, projectID uint) ([]*models.ProjectApplication, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListApplications(ctx, projectID)
}

// Review accepts or rejects a pending application and tells the applicant
func (s *ProjectService) Review(ctx context.Context, actor domain.Actor, applicationID uint, accept bool) (*models.ProjectApplication, error) {
	status := domain.ApplicationRejected
	if accept {
		status = domain.ApplicationAccepted
	}

	n, err := s.repo.Review(ctx, applicationID, status, actor.UserID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, notFound(err, domain.ErrApplicationNotFound)
	}
	if n == 0 {
		return nil, domain.ErrInvalidTransition
	}

	s.logger.Info("project application reviewed",
		zap.Uint("application_id", applicationID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("status", string(status)),
	)

	if app.User != nil && app.Project != nil {
		s.notify.Dispatch(ctx, domain.NotifyApplicationStatus, app.User.Email, map[string]any{
			"name":    app.User.Username,
			"project": app.Project.Title,
			"status":  string(status),
		})
	}
	return app, nil
}

// CountPending counts applications awaiting review
func (s *ProjectService) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}
