package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is a file attached to a project. Description and Content are held
// in plaintext here; the persistence layer encrypts them at rest.
type Document struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Filename     string    `json:"filename"`
	RelativePath string    `json:"relative_path,omitempty"`
	Description  string    `json:"description,omitempty"`
	Content      string    `json:"content,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewDocument creates a document in projectID.
func NewDocument(projectID uuid.UUID, filename, relativePath, description, content string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Filename:     filename,
		RelativePath: relativePath,
		Description:  description,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
