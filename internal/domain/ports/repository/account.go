package repository

import (
	"context"

	"telegram-bot-platform/internal/domain/model"
)

// -----------------------------
// Accounts (web identities)
// -----------------------------

type AccountRepository interface {
	// Save inserts a new account. Returns domain.ErrAlreadyExists when the
	// username or email is already taken.
	Save(ctx context.Context, tx Tx, a *model.Account) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.Account, error)

	// LinkChat associates the account with a directory entry.
	LinkChat(ctx context.Context, tx Tx, accountID string, chatID int64) error

	TouchLogin(ctx context.Context, tx Tx, accountID string) error
	Count(ctx context.Context, tx Tx) (int, error)
}
