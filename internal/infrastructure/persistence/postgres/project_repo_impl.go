package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	"github.com/turtacn/credence/pkg/logger"
)

// ProjectRepoImpl implements ProjectRepository interface using gorm.
type ProjectRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewProjectRepository(db *gorm.DB, log logger.Logger) repository.ProjectRepository {
	return &ProjectRepoImpl{
		db:     db,
		logger: log.WithComponent("ProjectRepository"),
	}
}

func (r *ProjectRepoImpl) Create(ctx context.Context, project *models.Project) error {
	startTime := time.Now()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		if !isUniqueViolation(err) {
			r.logger.Error(ctx, "Failed to create project", err, logger.String("name", project.Name))
		}
		return mapDBError(err, "project")
	}

	r.logger.Info(ctx, "Project created successfully",
		logger.String("project_id", project.ID.String()),
		logger.String("owner_id", project.OwnerID.String()),
		logger.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return nil
}

func (r *ProjectRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			r.logger.Error(ctx, "Failed to retrieve project by ID", err, logger.String("project_id", id.String()))
		}
		return nil, mapDBError(err, "project")
	}
	return &project, nil
}

func (r *ProjectRepoImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list projects", err, logger.String("owner_id", ownerID.String()))
		return nil, mapDBError(err, "project")
	}
	return projects, nil
}

func (r *ProjectRepoImpl) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Project, error) {
	owned, err := r.ListByOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var shared []*models.Project
	err = r.db.WithContext(ctx).
		Joins("JOIN accounts_projects ON accounts_projects.project_id = projects.id").
		Where("accounts_projects.collaborator_id = ?", accountID).
		Order("projects.created_at ASC").
		Find(&shared).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list collaborations", err, logger.String("account_id", accountID.String()))
		return nil, mapDBError(err, "project")
	}
	return append(owned, shared...), nil
}

func (r *ProjectRepoImpl) AddCollaborator(ctx context.Context, projectID, accountID uuid.UUID) error {
	collab := &models.Collaboration{
		ProjectID:      projectID,
		CollaboratorID: accountID,
		CreatedAt:      time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(collab).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to add collaborator", err,
			logger.String("project_id", projectID.String()),
			logger.String("account_id", accountID.String()),
		)
		return mapDBError(err, "collaboration")
	}
	return nil
}

func (r *ProjectRepoImpl) IsCollaborator(ctx context.Context, projectID, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Collaboration{}).
		Where("project_id = ? AND collaborator_id = ?", projectID, accountID).
		Count(&count).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to check collaboration", err, logger.String("project_id", projectID.String()))
		return false, mapDBError(err, "collaboration")
	}
	return count > 0, nil
}
