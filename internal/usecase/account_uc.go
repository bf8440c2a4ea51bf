package usecase

import (
	"context"
	"errors"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/adapter"
	"telegram-bot-platform/internal/domain/ports/repository"
	"telegram-bot-platform/internal/infra/logging"
	"telegram-bot-platform/internal/infra/metrics"
	"telegram-bot-platform/internal/infra/worker"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

type AccountUseCase interface {
	// Register creates the account and enqueues the welcome email job.
	Register(ctx context.Context, username, email, password, firstName, lastName string) (*model.Account, error)
	Login(ctx context.Context, username, password string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	// LinkedEntry returns the directory entry linked to the account, or nil
	// when no link exists.
	LinkedEntry(ctx context.Context, accountID string) (*model.DirectoryEntry, error)
	LinkTelegram(ctx context.Context, accountID string, chatID int64) error
	Count(ctx context.Context) (int, error)
}

type accountUC struct {
	accounts   repository.AccountRepository
	entries    repository.DirectoryRepository
	tm         repository.TransactionManager
	mailer     adapter.Mailer
	workerPool *worker.Pool
	log        *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	entries repository.DirectoryRepository,
	tm repository.TransactionManager,
	mailer adapter.Mailer,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *accountUC {
	return &accountUC{
		accounts:   accounts,
		entries:    entries,
		tm:         tm,
		mailer:     mailer,
		workerPool: pool,
		log:        logger,
	}
}

func (u *accountUC) Register(ctx context.Context, username, email, password, firstName, lastName string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Register")()

	if password == "" {
		return nil, domain.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account, err := model.NewAccount(username, email, string(hash), firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, repository.NoTX, account); err != nil {
		return nil, err
	}
	u.enqueueWelcomeEmail(account)
	u.log.Info().Str("account_id", account.ID).Str("username", username).Msg("account registered")
	return account, nil
}

// enqueueWelcomeEmail is fire-and-forget: a full queue or a failed send is
// logged, never surfaced to the registering user.
func (u *accountUC) enqueueWelcomeEmail(account *model.Account) {
	if u.mailer == nil || u.workerPool == nil {
		return
	}
	displayName := account.FirstName
	if displayName == "" {
		displayName = account.Username
	}
	task := func(ctx context.Context) error {
		if err := u.mailer.SendWelcome(ctx, account.Email, displayName, account.Username); err != nil {
			metrics.IncWelcomeEmail(false)
			u.log.Error().Err(err).Str("account_id", account.ID).Msg("welcome email failed")
			return nil
		}
		metrics.IncWelcomeEmail(true)
		return nil
	}
	if err := u.workerPool.Submit(task); err != nil {
		u.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to enqueue welcome email")
	}
}

func (u *accountUC) Login(ctx context.Context, username, password string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Login")()

	account, err := u.accounts.FindByUsername(ctx, repository.NoTX, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := u.accounts.TouchLogin(ctx, repository.NoTX, account.ID); err != nil {
		u.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to record login time")
	}
	return account, nil
}

func (u *accountUC) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return u.accounts.FindByID(ctx, repository.NoTX, id)
}

func (u *accountUC) LinkedEntry(ctx context.Context, accountID string) (*model.DirectoryEntry, error) {
	account, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if account.ChatID == nil {
		return nil, nil
	}
	entry, err := u.entries.FindByChatID(ctx, repository.NoTX, *account.ChatID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

func (u *accountUC) LinkTelegram(ctx context.Context, accountID string, chatID int64) error {
	// The existence check and the link write run in one transaction so the
	// entry cannot disappear between them.
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	return u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.entries.FindByChatID(ctx, tx, chatID); err != nil {
			return err
		}
		return u.accounts.LinkChat(ctx, tx, accountID, chatID)
	})
}

func (u *accountUC) Count(ctx context.Context) (int, error) {
	return u.accounts.Count(ctx, repository.NoTX)
}
