package usecase

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/repository"
	"telegram-bot-platform/internal/infra/logging"
	"telegram-bot-platform/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ InteractionUseCase = (*interactionUC)(nil)

type InteractionUseCase interface {
	// Append logs one action. Fails with domain.ErrNotFound when chatID has
	// no directory entry.
	Append(ctx context.Context, chatID int64, kind model.InteractionKind, payload string) (*model.InteractionRecord, error)
	CountSince(ctx context.Context, chatID int64, window time.Duration) (int, error)
	CountAllSince(ctx context.Context, window time.Duration) (int, error)
	MostFrequent(ctx context.Context, chatID int64, kind model.InteractionKind, limit int) ([]model.PayloadCount, error)
	PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error)
	ListRecent(ctx context.Context, chatID int64, limit int) ([]*model.InteractionRecord, error)
}

type interactionUC struct {
	records repository.InteractionRepository
	log     *zerolog.Logger
}

func NewInteractionUseCase(records repository.InteractionRepository, logger *zerolog.Logger) *interactionUC {
	return &interactionUC{records: records, log: logger}
}

// Append deliberately does not touch the directory entry: last_interaction_at
// is refreshed by the directory upsert so the same write is not done twice.
func (u *interactionUC) Append(ctx context.Context, chatID int64, kind model.InteractionKind, payload string) (*model.InteractionRecord, error) {
	defer logging.TraceDuration(u.log, "InteractionUC.Append")()

	rec, err := model.NewInteractionRecord(chatID, kind, payload)
	if err != nil {
		return nil, err
	}
	if err := u.records.Append(ctx, repository.NoTX, rec); err != nil {
		if err == domain.ErrNotFound {
			return nil, err
		}
		u.log.Error().Err(err).Int64("chat_id", chatID).Msg("append interaction failed")
		return nil, err
	}
	metrics.IncInteractionAppended()
	return rec, nil
}

func (u *interactionUC) CountSince(ctx context.Context, chatID int64, window time.Duration) (int, error) {
	return u.records.CountSince(ctx, repository.NoTX, chatID, time.Now().Add(-window))
}

func (u *interactionUC) CountAllSince(ctx context.Context, window time.Duration) (int, error) {
	return u.records.CountAllSince(ctx, repository.NoTX, time.Now().Add(-window))
}

func (u *interactionUC) MostFrequent(ctx context.Context, chatID int64, kind model.InteractionKind, limit int) ([]model.PayloadCount, error) {
	if limit <= 0 {
		limit = 3
	}
	return u.records.MostFrequent(ctx, repository.NoTX, chatID, kind, limit)
}

// PurgeOlderThan removes records past the retention window. Running it twice
// in a row deletes nothing the second time.
func (u *interactionUC) PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error) {
	defer logging.TraceDuration(u.log, "InteractionUC.PurgeOlderThan")()

	deleted, err := u.records.PurgeOlderThan(ctx, repository.NoTX, time.Now().Add(-window))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		metrics.AddInteractionsPurged(deleted)
		u.log.Info().Int64("count", deleted).Msg("purged old interactions")
	}
	return deleted, nil
}

func (u *interactionUC) ListRecent(ctx context.Context, chatID int64, limit int) ([]*model.InteractionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return u.records.ListRecent(ctx, repository.NoTX, chatID, limit)
}
