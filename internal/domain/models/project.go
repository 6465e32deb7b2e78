package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project groups documents. It belongs to a single owner account and may be
// shared with collaborators.
type Project struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;index;not null"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty" gorm:"column:repo_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// NewProject creates a project owned by ownerID.
func NewProject(ownerID uuid.UUID, name, description, repoURL string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Description: description,
		RepoURL:     repoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OwnedBy reports whether accountID owns the project.
func (p *Project) OwnedBy(accountID uuid.UUID) bool {
	return p != nil && p.OwnerID == accountID
}

// Collaboration grants an account access to a project it does not own.
type Collaboration struct {
	ProjectID      uuid.UUID `json:"project_id" gorm:"type:uuid;primaryKey"`
	CollaboratorID uuid.UUID `json:"collaborator_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Collaboration) TableName() string {
	return "accounts_projects"
}
