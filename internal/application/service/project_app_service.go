package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/domain/models"
	"github.com/turtacn/credence/internal/domain/repository"
	"github.com/turtacn/credence/pkg/errors"
	"github.com/turtacn/credence/pkg/logger"
)

// ProjectAppService manages the projects and documents of an account. An
// account reaches the projects it owns and those it collaborates on; any
// other project is reported as not found.
type ProjectAppService interface {
	ListProjects(ctx context.Context, owner *models.Account) (*dto.ProjectListResponse, error)
	CreateProject(ctx context.Context, owner *models.Account, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	GetProject(ctx context.Context, owner *models.Account, projectID string) (*dto.ProjectResponse, error)
	// AddCollaborator shares a project with another account. Only the owner may do so.
	AddCollaborator(ctx context.Context, owner *models.Account, projectID string, req *dto.AddCollaboratorRequest) (*dto.CollaboratorResponse, error)

	ListDocuments(ctx context.Context, owner *models.Account, projectID string) (*dto.DocumentListResponse, error)
	CreateDocument(ctx context.Context, owner *models.Account, projectID string, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, owner *models.Account, projectID, documentID string) (*dto.DocumentResponse, error)
}

type projectAppServiceImpl struct {
	accounts  repository.AccountRepository
	projects  repository.ProjectRepository
	documents repository.DocumentRepository
	logger    logger.Logger
}

// NewProjectAppService creates a new ProjectAppService.
func NewProjectAppService(accounts repository.AccountRepository, projects repository.ProjectRepository, documents repository.DocumentRepository, log logger.Logger) ProjectAppService {
	return &projectAppServiceImpl{
		accounts:  accounts,
		projects:  projects,
		documents: documents,
		logger:    log.WithComponent("ProjectAppService"),
	}
}

func (s *projectAppServiceImpl) ListProjects(ctx context.Context, owner *models.Account) (*dto.ProjectListResponse, error) {
	if owner == nil {
		return nil, errors.ErrInvalidToken
	}
	projects, err := s.projects.ListForAccount(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewProjectListResponse(projects), nil
}

func (s *projectAppServiceImpl) CreateProject(ctx context.Context, owner *models.Account, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	if owner == nil {
		return nil, errors.ErrInvalidToken
	}
	if req == nil {
		return nil, errors.ErrInvalidRequest
	}
	project := models.NewProject(owner.ID, req.Name, req.Description, req.RepoURL)
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Project created",
		logger.String("project_id", project.ID.String()),
		logger.String("owner_id", owner.ID.String()),
	)
	return dto.NewProjectResponse(project), nil
}

func (s *projectAppServiceImpl) GetProject(ctx context.Context, owner *models.Account, projectID string) (*dto.ProjectResponse, error) {
	project, err := s.accessibleProject(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	return dto.NewProjectResponse(project), nil
}

func (s *projectAppServiceImpl) ListDocuments(ctx context.Context, owner *models.Account, projectID string) (*dto.DocumentListResponse, error) {
	project, err := s.accessibleProject(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentListResponse(docs), nil
}

func (s *projectAppServiceImpl) CreateDocument(ctx context.Context, owner *models.Account, projectID string, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if req == nil {
		return nil, errors.ErrInvalidRequest
	}
	project, err := s.accessibleProject(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	doc := models.NewDocument(project.ID, req.Filename, req.RelativePath, req.Description, req.Content)
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Document created",
		logger.String("project_id", project.ID.String()),
		logger.String("document_id", doc.ID.String()),
	)
	return dto.NewDocumentResponse(doc), nil
}

func (s *projectAppServiceImpl) GetDocument(ctx context.Context, owner *models.Account, projectID, documentID string) (*dto.DocumentResponse, error) {
	project, err := s.accessibleProject(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return nil, errors.ErrResourceNotFound("document")
	}
	doc, err := s.documents.FindByID(ctx, project.ID, docID)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentResponse(doc), nil
}

func (s *projectAppServiceImpl) AddCollaborator(ctx context.Context, owner *models.Account, projectID string, req *dto.AddCollaboratorRequest) (*dto.CollaboratorResponse, error) {
	if req == nil {
		return nil, errors.ErrInvalidRequest
	}
	project, err := s.accessibleProject(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	if !project.OwnedBy(owner.ID) {
		return nil, errors.ErrForbidden.WithMessage("only the owner may add collaborators")
	}

	collaborator, err := s.accounts.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if collaborator.ID == owner.ID {
		return nil, errors.ErrInvalidRequest.WithMessage("owner cannot collaborate on own project")
	}
	if err := s.projects.AddCollaborator(ctx, project.ID, collaborator.ID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Collaborator added",
		logger.String("project_id", project.ID.String()),
		logger.String("collaborator_id", collaborator.ID.String()),
	)
	return &dto.CollaboratorResponse{
		ProjectID: project.ID,
		AccountID: collaborator.ID,
		Username:  collaborator.Username,
	}, nil
}

// accessibleProject resolves projectID for an owner or collaborator. Malformed
// ids and projects the account cannot reach are both ErrNotFound.
func (s *projectAppServiceImpl) accessibleProject(ctx context.Context, account *models.Account, projectID string) (*models.Project, error) {
	if account == nil {
		return nil, errors.ErrInvalidToken
	}
	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, errors.ErrResourceNotFound("project")
	}
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnedBy(account.ID) {
		return project, nil
	}
	member, err := s.projects.IsCollaborator(ctx, project.ID, account.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errors.ErrResourceNotFound("project")
	}
	return project, nil
}
