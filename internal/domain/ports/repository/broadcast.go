package repository

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain/model"
)

// -----------------------------
// Broadcast Jobs
// -----------------------------

type BroadcastRepository interface {
	Create(ctx context.Context, tx Tx, job *model.BroadcastJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BroadcastJob, error)

	// Claim performs the conditional pending -> in_flight transition.
	// Returns claimed=false when the job was not in pending state, closing
	// the race between two concurrent execution triggers.
	Claim(ctx context.Context, tx Tx, id string) (bool, error)

	// Complete persists all result fields and the terminal status in a
	// single statement so readers never observe a partial result.
	Complete(ctx context.Context, tx Tx, job *model.BroadcastJob) error

	// Release resets an in_flight job back to pending (reconciler path).
	Release(ctx context.Context, tx Tx, id string) error

	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.BroadcastJob, error)

	// FindStaleInFlight returns jobs that entered in_flight before the cutoff
	// and never completed, oldest first.
	FindStaleInFlight(ctx context.Context, tx Tx, cutoff time.Time) ([]*model.BroadcastJob, error)
}
