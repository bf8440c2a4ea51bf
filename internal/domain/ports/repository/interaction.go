package repository

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain/model"
)

// -----------------------------
// Interaction Log
// -----------------------------

type InteractionRepository interface {
	// Append inserts one record. Returns domain.ErrNotFound when chatID has
	// no directory entry (the log never references an unknown identity).
	Append(ctx context.Context, tx Tx, rec *model.InteractionRecord) error

	// ListRecent returns the newest records for chatID, occurred_at descending.
	ListRecent(ctx context.Context, tx Tx, chatID int64, limit int) ([]*model.InteractionRecord, error)

	CountSince(ctx context.Context, tx Tx, chatID int64, since time.Time) (int, error)
	CountAllSince(ctx context.Context, tx Tx, since time.Time) (int, error)
	CountTotal(ctx context.Context, tx Tx, chatID int64) (int, error)

	// CountActiveChatsSince counts distinct chat ids with at least one record
	// since the given time.
	CountActiveChatsSince(ctx context.Context, tx Tx, since time.Time) (int, error)

	// MostFrequent aggregates payloads of the given kind for chatID, ordered
	// by count descending, ties broken by payload ascending.
	MostFrequent(ctx context.Context, tx Tx, chatID int64, kind model.InteractionKind, limit int) ([]model.PayloadCount, error)

	// PurgeOlderThan deletes records with occurred_at before the cutoff and
	// returns how many were removed.
	PurgeOlderThan(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
