package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountClaims is the identity carried by an auth token.
type AccountClaims struct {
	AccountID uuid.UUID
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the claims to mint a token for account.
func ClaimsFor(account *Account) AccountClaims {
	return AccountClaims{
		AccountID: account.ID,
		Username:  account.Username,
	}
}
