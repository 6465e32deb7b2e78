// Package models defines the domain models for the Credence API.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is a registered user. PasswordDigest holds the stored text of a
// password digest and is never rendered.
type Account struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordDigest string    `json:"-" gorm:"column:password_digest;not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName pins the gorm table.
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates an account with a fresh id. passwordDigest must already
// be the stored form of a digest.
func NewAccount(username, email, passwordDigest string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:             uuid.New(),
		Username:       strings.TrimSpace(username),
		Email:          strings.TrimSpace(email),
		PasswordDigest: passwordDigest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
