package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/domain/models"
)

// ProjectRepository defines the interface for interacting with project storage.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// ListByOwner returns the projects owned by ownerID, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)
	// ListForAccount returns the projects accountID owns followed by those it
	// collaborates on, each group oldest first.
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Project, error)
	// AddCollaborator is idempotent.
	AddCollaborator(ctx context.Context, projectID, accountID uuid.UUID) error
	IsCollaborator(ctx context.Context, projectID, accountID uuid.UUID) (bool, error)
}

// DocumentRepository stores documents. Implementations encrypt Description
// and Content at rest and return them decrypted.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	// FindByID only finds docID inside projectID.
	FindByID(ctx context.Context, projectID, docID uuid.UUID) (*models.Document, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Document, error)
}
