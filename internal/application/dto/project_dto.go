package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/domain/models"
)

// CreateProjectRequest is the body of POST /api/v1/projects.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=4096"`
	RepoURL     string `json:"repo_url" validate:"omitempty,url,max=512"`
}

// ProjectResponse is the public view of a project.
type ProjectResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProjectResponse renders project.
func NewProjectResponse(p *models.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		RepoURL:     p.RepoURL,
		CreatedAt:   p.CreatedAt,
	}
}

// ProjectListResponse is the body of GET /api/v1/projects.
type ProjectListResponse struct {
	Data  []*ProjectResponse `json:"data"`
	Count int                `json:"count"`
}

// NewProjectListResponse renders projects; an empty list renders as [].
func NewProjectListResponse(projects []*models.Project) *ProjectListResponse {
	out := &ProjectListResponse{Data: make([]*ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		out.Data = append(out.Data, NewProjectResponse(p))
	}
	out.Count = len(out.Data)
	return out
}

// CreateDocumentRequest is the body of POST /api/v1/projects/:project_id/documents.
type CreateDocumentRequest struct {
	Filename     string `json:"filename" validate:"required,max=256"`
	RelativePath string `json:"relative_path" validate:"max=1024"`
	Description  string `json:"description" validate:"max=4096"`
	Content      string `json:"content" validate:"max=1048576"`
}

// DocumentResponse is the public view of a document, decrypted.
type DocumentResponse struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Filename     string    `json:"filename"`
	RelativePath string    `json:"relative_path,omitempty"`
	Description  string    `json:"description,omitempty"`
	Content      string    `json:"content,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewDocumentResponse renders doc.
func NewDocumentResponse(d *models.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		Filename:     d.Filename,
		RelativePath: d.RelativePath,
		Description:  d.Description,
		Content:      d.Content,
		CreatedAt:    d.CreatedAt,
	}
}

// DocumentListResponse is the body of GET .../documents.
type DocumentListResponse struct {
	Data  []*DocumentResponse `json:"data"`
	Count int                 `json:"count"`
}

// NewDocumentListResponse renders docs; an empty list renders as [].
func NewDocumentListResponse(docs []*models.Document) *DocumentListResponse {
	out := &DocumentListResponse{Data: make([]*DocumentResponse, 0, len(docs))}
	for _, d := range docs {
		out.Data = append(out.Data, NewDocumentResponse(d))
	}
	out.Count = len(out.Data)
	return out
}

// AddCollaboratorRequest is the body of POST /api/v1/projects/:project_id/collaborators.
type AddCollaboratorRequest struct {
	Username string `json:"username" validate:"required,username,max=64"`
}

// CollaboratorResponse names an account that shares a project.
type CollaboratorResponse struct {
	ProjectID uuid.UUID `json:"project_id"`
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
}
