package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/repository"
)

var _ repository.DirectoryRepository = (*PostgresDirectoryRepo)(nil)

type PostgresDirectoryRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectoryRepo(pool *pgxpool.Pool) *PostgresDirectoryRepo {
	return &PostgresDirectoryRepo{pool: pool}
}

const directoryColumns = `chat_id, username, first_name, last_name, created_at, last_interaction_at, is_active`

// Upsert relies on the chat_id unique constraint instead of check-then-create.
// COALESCE(NULLIF($n,''), old) keeps stored values when the incoming field is
// empty; (xmax = 0) tells inserts apart from updates.
func (r *PostgresDirectoryRepo) Upsert(ctx context.Context, tx repository.Tx, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error) {
	if chatID <= 0 {
		return nil, false, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO directory_entries (chat_id, username, first_name, last_name, created_at, last_interaction_at, is_active)
VALUES ($1, $2, $3, $4, now(), now(), TRUE)
ON CONFLICT (chat_id) DO UPDATE SET
  username            = COALESCE(NULLIF($2, ''), directory_entries.username),
  first_name          = COALESCE(NULLIF($3, ''), directory_entries.first_name),
  last_name           = COALESCE(NULLIF($4, ''), directory_entries.last_name),
  last_interaction_at = now()
RETURNING ` + directoryColumns + `, (xmax = 0) AS created;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, false, err
	}
	var e model.DirectoryEntry
	var created bool
	row := ex.QueryRow(ctx, q, chatID, username, firstName, lastName)
	if err := row.Scan(&e.ChatID, &e.Username, &e.FirstName, &e.LastName, &e.CreatedAt, &e.LastInteractionAt, &e.IsActive, &created); err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			// Concurrent first contact with a colliding username; the caller
			// may retry, the chat_id row itself is guaranteed unique.
			return nil, false, domain.ErrAlreadyExists
		}
		return nil, false, fmt.Errorf("upsert directory entry: %w", err)
	}
	return &e, created, nil
}

func (r *PostgresDirectoryRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.DirectoryEntry, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directory_entries WHERE chat_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var e model.DirectoryEntry
	row := ex.QueryRow(ctx, q, chatID)
	if err := row.Scan(&e.ChatID, &e.Username, &e.FirstName, &e.LastName, &e.CreatedAt, &e.LastInteractionAt, &e.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresDirectoryRepo) SetActive(ctx context.Context, tx repository.Tx, chatID int64, active bool) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE directory_entries SET is_active=$2 WHERE chat_id=$1;`, chatID, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresDirectoryRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.DirectoryEntry, error) {
	const q = `SELECT ` + directoryColumns + ` FROM directory_entries WHERE is_active ORDER BY created_at ASC;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresDirectoryRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.DirectoryEntry, error) {
	q := `SELECT ` + directoryColumns + ` FROM directory_entries ORDER BY created_at ASC OFFSET $1`
	args := []interface{}{offset}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresDirectoryRepo) Rank(ctx context.Context, tx repository.Tx, chatID int64) (int, error) {
	const q = `
SELECT rank FROM (
  SELECT chat_id, ROW_NUMBER() OVER (ORDER BY created_at ASC) AS rank
    FROM directory_entries
) ranked WHERE chat_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var rank int
	if err := ex.QueryRow(ctx, q, chatID).Scan(&rank); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("rank entry: %w", err)
	}
	return rank, nil
}

func (r *PostgresDirectoryRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM directory_entries;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (r *PostgresDirectoryRepo) CountCreatedSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM directory_entries WHERE created_at >= $1;`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count created since: %w", err)
	}
	return n, nil
}

func scanEntries(rows pgx.Rows) ([]*model.DirectoryEntry, error) {
	var out []*model.DirectoryEntry
	for rows.Next() {
		var e model.DirectoryEntry
		if err := rows.Scan(&e.ChatID, &e.Username, &e.FirstName, &e.LastName, &e.CreatedAt, &e.LastInteractionAt, &e.IsActive); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
