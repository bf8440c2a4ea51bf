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

var _ repository.BroadcastRepository = (*PostgresBroadcastRepo)(nil)

type PostgresBroadcastRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBroadcastRepo(pool *pgxpool.Pool) *PostgresBroadcastRepo {
	return &PostgresBroadcastRepo{pool: pool}
}

const broadcastColumns = `id, title, body, created_by, created_at, sent_at, total_recipients, successful_sends, failed_sends, status`

func (r *PostgresBroadcastRepo) Create(ctx context.Context, tx repository.Tx, job *model.BroadcastJob) error {
	const q = `
INSERT INTO broadcast_jobs (id, title, body, created_by, created_at, status)
VALUES ($1, $2, $3, $4, $5, $6);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, job.ID, job.Title, job.Body, job.CreatedBy, job.CreatedAt, string(job.Status)); err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create broadcast job: %w", err)
	}
	return nil
}

func (r *PostgresBroadcastRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BroadcastJob, error) {
	const q = `SELECT ` + broadcastColumns + ` FROM broadcast_jobs WHERE id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanBroadcast(ex.QueryRow(ctx, q, id))
}

// Claim is the conditional pending -> in_flight transition. The WHERE clause
// on status makes concurrent claims race-free: only one caller sees a row.
func (r *PostgresBroadcastRepo) Claim(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE broadcast_jobs SET status='in_flight', claimed_at=now()
 WHERE id=$1 AND status='pending';`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("claim broadcast job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete writes every result field in one statement so a reader never sees
// a partially persisted outcome.
func (r *PostgresBroadcastRepo) Complete(ctx context.Context, tx repository.Tx, job *model.BroadcastJob) error {
	const q = `
UPDATE broadcast_jobs
   SET sent_at=$2, total_recipients=$3, successful_sends=$4, failed_sends=$5, status='sent'
 WHERE id=$1 AND status='in_flight';`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, job.ID, job.SentAt, job.TotalRecipients, job.SuccessfulSends, job.FailedSends)
	if err != nil {
		return fmt.Errorf("complete broadcast job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresBroadcastRepo) Release(ctx context.Context, tx repository.Tx, id string) error {
	const q = `
UPDATE broadcast_jobs SET status='pending', claimed_at=NULL
 WHERE id=$1 AND status='in_flight';`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("release broadcast job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresBroadcastRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.BroadcastJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + broadcastColumns + ` FROM broadcast_jobs ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list broadcast jobs: %w", err)
	}
	defer rows.Close()
	return scanBroadcasts(rows)
}

func (r *PostgresBroadcastRepo) FindStaleInFlight(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.BroadcastJob, error) {
	const q = `
SELECT ` + broadcastColumns + `
  FROM broadcast_jobs
 WHERE status='in_flight' AND claimed_at < $1
 ORDER BY claimed_at ASC;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale broadcast jobs: %w", err)
	}
	defer rows.Close()
	return scanBroadcasts(rows)
}

func scanBroadcast(row pgx.Row) (*model.BroadcastJob, error) {
	var j model.BroadcastJob
	var status string
	if err := row.Scan(&j.ID, &j.Title, &j.Body, &j.CreatedBy, &j.CreatedAt, &j.SentAt, &j.TotalRecipients, &j.SuccessfulSends, &j.FailedSends, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = model.BroadcastStatus(status)
	return &j, nil
}

func scanBroadcasts(rows pgx.Rows) ([]*model.BroadcastJob, error) {
	var out []*model.BroadcastJob
	for rows.Next() {
		var j model.BroadcastJob
		var status string
		if err := rows.Scan(&j.ID, &j.Title, &j.Body, &j.CreatedBy, &j.CreatedAt, &j.SentAt, &j.TotalRecipients, &j.SuccessfulSends, &j.FailedSends, &status); err != nil {
			return nil, err
		}
		j.Status = model.BroadcastStatus(status)
		out = append(out, &j)
	}
	return out, rows.Err()
}
