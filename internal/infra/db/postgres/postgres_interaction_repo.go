package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/repository"
)

var _ repository.InteractionRepository = (*PostgresInteractionRepo)(nil)

type PostgresInteractionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInteractionRepo(pool *pgxpool.Pool) *PostgresInteractionRepo {
	return &PostgresInteractionRepo{pool: pool}
}

// Append inserts one immutable record. The FK to directory_entries is what
// enforces "no log entry without an identity"; we just map the violation.
func (r *PostgresInteractionRepo) Append(ctx context.Context, tx repository.Tx, rec *model.InteractionRecord) error {
	const q = `
INSERT INTO interactions (chat_id, kind, payload, occurred_at)
VALUES ($1, $2, $3, $4)
RETURNING id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	row := ex.QueryRow(ctx, q, rec.ChatID, string(rec.Kind), rec.Payload, rec.OccurredAt)
	if err := row.Scan(&rec.ID); err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return domain.ErrNotFound
		}
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

func (r *PostgresInteractionRepo) ListRecent(ctx context.Context, tx repository.Tx, chatID int64, limit int) ([]*model.InteractionRecord, error) {
	const q = `
SELECT id, chat_id, kind, payload, occurred_at
  FROM interactions WHERE chat_id=$1
 ORDER BY occurred_at DESC
 LIMIT $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent interactions: %w", err)
	}
	defer rows.Close()

	var out []*model.InteractionRecord
	for rows.Next() {
		var rec model.InteractionRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.ChatID, &kind, &rec.Payload, &rec.OccurredAt); err != nil {
			return nil, err
		}
		rec.Kind = model.InteractionKind(kind)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *PostgresInteractionRepo) CountSince(ctx context.Context, tx repository.Tx, chatID int64, since time.Time) (int, error) {
	return r.scanCount(ctx, tx, `SELECT COUNT(*) FROM interactions WHERE chat_id=$1 AND occurred_at >= $2;`, chatID, since)
}

func (r *PostgresInteractionRepo) CountAllSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.scanCount(ctx, tx, `SELECT COUNT(*) FROM interactions WHERE occurred_at >= $1;`, since)
}

func (r *PostgresInteractionRepo) CountTotal(ctx context.Context, tx repository.Tx, chatID int64) (int, error) {
	return r.scanCount(ctx, tx, `SELECT COUNT(*) FROM interactions WHERE chat_id=$1;`, chatID)
}

func (r *PostgresInteractionRepo) CountActiveChatsSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.scanCount(ctx, tx, `SELECT COUNT(DISTINCT chat_id) FROM interactions WHERE occurred_at >= $1;`, since)
}

// MostFrequent orders by count descending with payload ascending as the
// tie-break so the result is deterministic.
func (r *PostgresInteractionRepo) MostFrequent(ctx context.Context, tx repository.Tx, chatID int64, kind model.InteractionKind, limit int) ([]model.PayloadCount, error) {
	const q = `
SELECT payload, COUNT(*) AS cnt
  FROM interactions
 WHERE chat_id=$1 AND kind=$2
 GROUP BY payload
 ORDER BY cnt DESC, payload ASC
 LIMIT $3;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, chatID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("most frequent payloads: %w", err)
	}
	defer rows.Close()

	var out []model.PayloadCount
	for rows.Next() {
		var pc model.PayloadCount
		if err := rows.Scan(&pc.Payload, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (r *PostgresInteractionRepo) PurgeOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM interactions WHERE occurred_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge interactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresInteractionRepo) scanCount(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}
