// Package dto holds the request and response bodies of the Credence API.
package dto

import "github.com/turtacn/credence/internal/domain/models"

// AuthenticateRequest is the body of POST /api/v1/auth/authenticate.
type AuthenticateRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=1024"`
}

// ClientInfo describes the caller for rate limiting and audit.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	TraceID   string
}

// AuthenticatedAccount is returned on a successful login. AuthToken is
// presented back as "Authorization: Bearer <auth_token>".
type AuthenticatedAccount struct {
	Account   *AccountResponse `json:"account"`
	AuthToken string           `json:"auth_token"`
	ExpiresAt int64            `json:"expires_at"`
}

// NewAuthenticatedAccount pairs an account with its freshly issued token.
func NewAuthenticatedAccount(account *models.Account, token string, expiresAt int64) *AuthenticatedAccount {
	return &AuthenticatedAccount{
		Account:   NewAccountResponse(account),
		AuthToken: token,
		ExpiresAt: expiresAt,
	}
}
