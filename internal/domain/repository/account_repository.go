// Package repository defines the storage interfaces of the Credence API domain.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/domain/models"
)

// AccountRepository defines the interface for interacting with account storage.
// Lookups of a missing account return errors.ErrNotFound.
type AccountRepository interface {
	// Create persists a new account. A taken username or email is errors.ErrConflict.
	Create(ctx context.Context, account *models.Account) error

	// FindByID retrieves an account by id.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// FindByUsername retrieves an account by its exact username.
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
}
