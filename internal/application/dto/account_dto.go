package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/credence/internal/domain/models"
)

// CreateAccountRequest is the body of POST /api/v1/accounts. Any other field
// is rejected.
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,username,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// AccountResponse is the public view of an account. It has no digest field.
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccountResponse renders account.
func NewAccountResponse(account *models.Account) *AccountResponse {
	if account == nil {
		return nil
	}
	return &AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}
}
