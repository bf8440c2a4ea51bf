package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/adapter"
	"telegram-bot-platform/internal/domain/ports/repository"
	"telegram-bot-platform/internal/infra/logging"
	"telegram-bot-platform/internal/infra/metrics"
	red "telegram-bot-platform/internal/infra/redis"
	"telegram-bot-platform/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

type BroadcastUseCase interface {
	Create(ctx context.Context, title, body, createdBy string) (*model.BroadcastJob, error)
	Get(ctx context.Context, id string) (*model.BroadcastJob, error)
	List(ctx context.Context, offset, limit int) ([]*model.BroadcastJob, error)

	// Execute runs the whole send procedure for one job and returns it with
	// the result fields populated. At most one execution per job ever
	// happens; re-executing a sent job is a no-op returning the stored
	// result.
	Execute(ctx context.Context, id string) (*model.BroadcastJob, error)

	// ReconcileStale resets jobs stuck in_flight past the cutoff back to
	// pending so an administrator can re-trigger them.
	ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type broadcastUC struct {
	jobs        repository.BroadcastRepository
	directory   repository.DirectoryRepository
	bot         adapter.TelegramBotAdapter
	workerPool  *worker.Pool
	locker      red.Locker
	sendTimeout time.Duration
	ratePerSec  int
	log         *zerolog.Logger
}

func NewBroadcastUseCase(
	jobs repository.BroadcastRepository,
	directory repository.DirectoryRepository,
	bot adapter.TelegramBotAdapter,
	pool *worker.Pool,
	locker red.Locker,
	sendTimeout time.Duration,
	ratePerSec int,
	logger *zerolog.Logger,
) *broadcastUC {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 25
	}
	return &broadcastUC{
		jobs:        jobs,
		directory:   directory,
		bot:         bot,
		workerPool:  pool,
		locker:      locker,
		sendTimeout: sendTimeout,
		ratePerSec:  ratePerSec,
		log:         logger,
	}
}

func (uc *broadcastUC) Create(ctx context.Context, title, body, createdBy string) (*model.BroadcastJob, error) {
	job, err := model.NewBroadcastJob(title, body, createdBy)
	if err != nil {
		return nil, err
	}
	if err := uc.jobs.Create(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	uc.log.Info().Str("job_id", job.ID).Str("title", title).Msg("broadcast job created")
	return job, nil
}

func (uc *broadcastUC) Get(ctx context.Context, id string) (*model.BroadcastJob, error) {
	return uc.jobs.FindByID(ctx, repository.NoTX, id)
}

func (uc *broadcastUC) List(ctx context.Context, offset, limit int) ([]*model.BroadcastJob, error) {
	return uc.jobs.List(ctx, repository.NoTX, offset, limit)
}

func (uc *broadcastUC) Execute(ctx context.Context, id string) (*model.BroadcastJob, error) {
	defer logging.TraceDuration(uc.log, "BroadcastUC.Execute")()

	job, err := uc.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	// At-most-once guard: a sent job is never executed again.
	if job.IsSent() {
		return job, nil
	}

	// The redis lock narrows the race between two admins clicking "send" at
	// the same moment; the conditional claim below stays authoritative.
	if uc.locker != nil {
		token, err := uc.locker.TryLock(ctx, red.BroadcastLockKey(id), uc.sendTimeout*2)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				return nil, domain.ErrBroadcastInFlight
			}
			return nil, err
		}
		defer func() { _ = uc.locker.Unlock(context.Background(), red.BroadcastLockKey(id), token) }()
	}

	claimed, err := uc.jobs.Claim(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Someone else won the claim. Report sent as a no-op, in_flight as
		// a conflict.
		job, err = uc.jobs.FindByID(ctx, repository.NoTX, id)
		if err != nil {
			return nil, err
		}
		if job.IsSent() {
			return job, nil
		}
		return nil, domain.ErrBroadcastInFlight
	}

	started := time.Now()
	result, err := uc.fanOut(ctx, job)
	if err != nil {
		// Snapshot or cancellation failure: the job stays in_flight so the
		// reconciler can surface it; nothing partial was persisted.
		uc.log.Error().Err(err).Str("job_id", id).Msg("broadcast execution aborted")
		return nil, err
	}

	job.Complete(result.total, int(result.successful), int(result.failed), time.Now())
	if err := uc.jobs.Complete(ctx, repository.NoTX, job); err != nil {
		uc.log.Error().Err(err).Str("job_id", id).Msg("failed to persist broadcast result")
		return nil, err
	}

	metrics.IncBroadcastJob("completed")
	metrics.ObserveBroadcastDuration(time.Since(started).Seconds())
	uc.log.Info().
		Str("job_id", id).
		Int("total", job.TotalRecipients).
		Int("successful", job.SuccessfulSends).
		Int("failed", job.FailedSends).
		Msg("broadcast completed")
	return job, nil
}

type fanOutResult struct {
	total      int
	successful int64
	failed     int64
}

// fanOut snapshots the recipient set once and attempts delivery to every
// entry in it. Entries deactivated mid-broadcast still get their attempt.
func (uc *broadcastUC) fanOut(ctx context.Context, job *model.BroadcastJob) (*fanOutResult, error) {
	recipients, err := uc.directory.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	res := &fanOutResult{total: len(recipients)}
	if res.total == 0 {
		return res, nil
	}

	// Throttle to respect Telegram's API limits (approx. 30 messages/sec).
	throttle := time.NewTicker(time.Second / time.Duration(uc.ratePerSec))
	defer throttle.Stop()

	var wg sync.WaitGroup
	for _, rec := range recipients {
		select {
		case <-ctx.Done():
			// Stop submitting new attempts; in-flight ones may finish.
			wg.Wait()
			return nil, ctx.Err()
		case <-throttle.C:
		}

		chatID := rec.ChatID
		wg.Add(1)
		task := func(taskCtx context.Context) error {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(taskCtx, uc.sendTimeout)
			defer cancel()
			if err := uc.bot.SendMessage(sendCtx, chatID, job.Body); err != nil {
				// Per-recipient failures are tallied, never escalated.
				atomic.AddInt64(&res.failed, 1)
				metrics.IncBroadcastSend(false)
				uc.log.Warn().Err(err).Int64("chat_id", chatID).Str("job_id", job.ID).Msg("broadcast send failed")
				return nil
			}
			atomic.AddInt64(&res.successful, 1)
			metrics.IncBroadcastSend(true)
			return nil
		}
		if err := uc.workerPool.SubmitWait(ctx, task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()
	return res, nil
}

func (uc *broadcastUC) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := uc.jobs.FindStaleInFlight(ctx, repository.NoTX, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	released := 0
	for _, job := range stale {
		if err := uc.jobs.Release(ctx, repository.NoTX, job.ID); err != nil {
			uc.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to release stale broadcast")
			continue
		}
		released++
		metrics.IncBroadcastJob("reconciled")
		uc.log.Warn().
			Str("job_id", job.ID).
			Time("claimed_before", time.Now().Add(-olderThan)).
			Msg("stale in-flight broadcast reset to pending; re-trigger required")
	}
	return released, nil
}
