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
var _ DirectoryUseCase = (*directoryUC)(nil)

// DirectoryUseCase exposes the user-directory operations used by the bot and
// the admin API.
type DirectoryUseCase interface {
	// Upsert creates or refreshes the entry for chatID. Present incoming
	// fields overwrite stored ones; absent fields are preserved.
	Upsert(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error)
	GetByChatID(ctx context.Context, chatID int64) (*model.DirectoryEntry, error)
	Activate(ctx context.Context, chatID int64) error
	Deactivate(ctx context.Context, chatID int64) error
	ListActive(ctx context.Context) ([]*model.DirectoryEntry, error)
	List(ctx context.Context, offset, limit int) ([]*model.DirectoryEntry, error)
	Rank(ctx context.Context, chatID int64) (int, error)
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type directoryUC struct {
	entries repository.DirectoryRepository
	log     *zerolog.Logger
}

func NewDirectoryUseCase(entries repository.DirectoryRepository, logger *zerolog.Logger) *directoryUC {
	return &directoryUC{entries: entries, log: logger}
}

func (u *directoryUC) Upsert(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error) {
	defer logging.TraceDuration(u.log, "DirectoryUC.Upsert")()

	if chatID <= 0 {
		return nil, false, domain.ErrInvalidArgument
	}
	// The repository upsert is a single atomic statement, so there is no
	// check-then-act race here even under concurrent first contact.
	entry, created, err := u.entries.Upsert(ctx, repository.NoTX, chatID, username, firstName, lastName)
	if err != nil {
		u.log.Error().Err(err).Int64("chat_id", chatID).Msg("directory upsert failed")
		return nil, false, err
	}
	metrics.IncDirectoryUpsert(created)
	return entry, created, nil
}

func (u *directoryUC) GetByChatID(ctx context.Context, chatID int64) (*model.DirectoryEntry, error) {
	defer logging.TraceDuration(u.log, "DirectoryUC.GetByChatID")()
	return u.entries.FindByChatID(ctx, repository.NoTX, chatID)
}

// Activate and Deactivate return domain.ErrNotFound for an unknown chatID
// rather than silently succeeding.
func (u *directoryUC) Activate(ctx context.Context, chatID int64) error {
	return u.entries.SetActive(ctx, repository.NoTX, chatID, true)
}

func (u *directoryUC) Deactivate(ctx context.Context, chatID int64) error {
	return u.entries.SetActive(ctx, repository.NoTX, chatID, false)
}

func (u *directoryUC) ListActive(ctx context.Context) ([]*model.DirectoryEntry, error) {
	defer logging.TraceDuration(u.log, "DirectoryUC.ListActive")()
	return u.entries.ListActive(ctx, repository.NoTX)
}

func (u *directoryUC) List(ctx context.Context, offset, limit int) ([]*model.DirectoryEntry, error) {
	return u.entries.List(ctx, repository.NoTX, offset, limit)
}

func (u *directoryUC) Rank(ctx context.Context, chatID int64) (int, error) {
	return u.entries.Rank(ctx, repository.NoTX, chatID)
}

func (u *directoryUC) Count(ctx context.Context) (int, error) {
	return u.entries.Count(ctx, repository.NoTX)
}

func (u *directoryUC) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return u.entries.CountCreatedSince(ctx, repository.NoTX, since)
}
