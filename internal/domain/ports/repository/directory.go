package repository

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain/model"
)

// -----------------------------
// User Directory
// -----------------------------

type DirectoryRepository interface {
	// Upsert atomically creates the entry for chatID or updates the mutable
	// fields of the existing one. Empty incoming values never overwrite
	// stored values; last_interaction_at is always refreshed.
	// Returns created=true when a new row was inserted.
	Upsert(ctx context.Context, tx Tx, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error)

	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.DirectoryEntry, error)

	// SetActive toggles is_active. Returns domain.ErrNotFound when no entry
	// exists for chatID.
	SetActive(ctx context.Context, tx Tx, chatID int64, active bool) error

	// ListActive returns active entries ordered by created_at ascending.
	ListActive(ctx context.Context, tx Tx) ([]*model.DirectoryEntry, error)

	// List returns entries ordered by created_at ascending, paginated.
	// limit <= 0 means no limit.
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.DirectoryEntry, error)

	// Rank returns the 1-based position of the entry among all entries
	// ordered by created_at ascending.
	Rank(ctx context.Context, tx Tx, chatID int64) (int, error)

	Count(ctx context.Context, tx Tx) (int, error)
	CountCreatedSince(ctx context.Context, tx Tx, since time.Time) (int, error)
}
