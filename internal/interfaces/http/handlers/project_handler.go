package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/internal/application/service"
	"github.com/turtacn/credence/internal/interfaces/http/middleware"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/utils"
)

// ProjectHandler handles projects and their documents. Every route runs
// behind RequireAccount.
type ProjectHandler struct {
	projects service.ProjectAppService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectAppService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List handles GET /api/v1/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	list, err := h.projects.ListProjects(c.Request.Context(), middleware.CurrentAccount(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, list)
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := utils.DecodeStrict(c.Request.Body, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), middleware.CurrentAccount(c), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	c.Header("Location", constants.APIRoot+"/projects/"+project.ID.String())
	dto.SendSuccess(c, http.StatusCreated, project)
}

// Get handles GET /api/v1/projects/:project_id.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.GetProject(c.Request.Context(), middleware.CurrentAccount(c), c.Param("project_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, project)
}

// ListDocuments handles GET /api/v1/projects/:project_id/documents.
func (h *ProjectHandler) ListDocuments(c *gin.Context) {
	list, err := h.projects.ListDocuments(c.Request.Context(), middleware.CurrentAccount(c), c.Param("project_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, list)
}

// CreateDocument handles POST /api/v1/projects/:project_id/documents.
func (h *ProjectHandler) CreateDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := utils.DecodeStrict(c.Request.Body, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	doc, err := h.projects.CreateDocument(c.Request.Context(), middleware.CurrentAccount(c), c.Param("project_id"), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	c.Header("Location", constants.APIRoot+"/projects/"+doc.ProjectID.String()+"/documents/"+doc.ID.String())
	dto.SendSuccess(c, http.StatusCreated, doc)
}

// GetDocument handles GET /api/v1/projects/:project_id/documents/:document_id.
func (h *ProjectHandler) GetDocument(c *gin.Context) {
	doc, err := h.projects.GetDocument(c.Request.Context(), middleware.CurrentAccount(c), c.Param("project_id"), c.Param("document_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, doc)
}

// AddCollaborator handles POST /api/v1/projects/:project_id/collaborators.
func (h *ProjectHandler) AddCollaborator(c *gin.Context) {
	var req dto.AddCollaboratorRequest
	if err := utils.DecodeStrict(c.Request.Body, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	collab, err := h.projects.AddCollaborator(c.Request.Context(), middleware.CurrentAccount(c), c.Param("project_id"), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, collab)
}
