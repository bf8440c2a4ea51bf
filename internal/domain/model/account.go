package model

import (
	"time"

	"telegram-bot-platform/internal/domain"

	"github.com/google/uuid"
)

// Account is an internal web identity (registration/login via the REST API).
// It may optionally link to one DirectoryEntry via ChatID.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ChatID       *int64     `json:"chat_id,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func NewAccount(username, email, passwordHash, firstName, lastName string) (*Account, error) {
	if username == "" || email == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now(),
	}, nil
}
