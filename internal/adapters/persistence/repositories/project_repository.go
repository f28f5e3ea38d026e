package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"
)

// ProjectRepository implementation
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	return conn(ctx, r.db).Create(p).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := conn(ctx, r.db).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context, status domain.ProjectStatus, page *pagination.Params) ([]*models.Project, int64, error) {
	var list []*models.Project
	var total int64

	query := conn(ctx, r.db).Model(&models.Project{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC, id DESC").Scopes(page.Scope).Find(&list).Error
	return list, total, err
}

// Close marks an open project closed and returns the number of rows changed
func (r *projectRepository) Close(ctx context.Context, id uint, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&models.Project{}).
		Where("id = ? AND status = ?", id, domain.ProjectOpen).
		Updates(map[string]interface{}{
			"status":    domain.ProjectClosed,
			"closed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepository) CreateApplication(ctx context.Context, a *models.ProjectApplication) error {
	return conn(ctx, r.db).Create(a).Error
}

func (r *projectRepository) HasApplication(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ProjectApplication{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) GetApplication(ctx context.Context, id uint) (*models.ProjectApplication, error) {
	var a models.ProjectApplication
	if err := conn(ctx, r.db).Preload("User").Preload("Project").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *projectRepository) ListApplications(ctx context.Context, projectID uint) ([]*models.ProjectApplication, error) {
	var list []*models.ProjectApplication
	err := conn(ctx, r.db).Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// Review moves a pending application to status; reviewed applications are left untouched
func (r *projectRepository) Review(ctx context.Context, id uint, status domain.ApplicationStatus, reviewer uint, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&models.ProjectApplication{}).
		Where("id = ? AND status = ?", id, domain.ApplicationPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer,
			"reviewed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ProjectApplication{}).
		Where("status = ?", domain.ApplicationPending).
		Count(&count).Error
	return count, err
}
