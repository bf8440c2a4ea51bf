package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `id, username, email, password_hash, first_name, last_name, created_at, chat_id, last_login_at`

func (r *PostgresAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, username, email, password_hash, first_name, last_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, a.ID, a.Username, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.CreatedAt); err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return r.findBy(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1;`, id)
}

func (r *PostgresAccountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	return r.findBy(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE username=$1;`, username)
}

func (r *PostgresAccountRepo) LinkChat(ctx context.Context, tx repository.Tx, accountID string, chatID int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE accounts SET chat_id=$2 WHERE id=$1;`, accountID, chatID)
	if err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return domain.ErrNotFound
		}
		return fmt.Errorf("link chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) TouchLogin(ctx context.Context, tx repository.Tx, accountID string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `UPDATE accounts SET last_login_at=now() WHERE id=$1;`, accountID)
	return err
}

func (r *PostgresAccountRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM accounts;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *PostgresAccountRepo) findBy(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Account, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var a model.Account
	row := ex.QueryRow(ctx, q, arg)
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.CreatedAt, &a.ChatID, &a.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
