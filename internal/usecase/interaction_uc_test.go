//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/usecase"
)

func TestInteractionUseCase_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("appends a record for a known chat", func(t *testing.T) {
		repo := NewMockInteractionRepo(42)
		uc := usecase.NewInteractionUseCase(repo, newTestLogger())

		rec, err := uc.Append(ctx, 42, model.InteractionCommand, "/start")
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if rec.Kind != model.InteractionCommand || rec.Payload != "/start" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.OccurredAt.IsZero() {
			t.Error("expected occurred_at to be set")
		}
	})

	t.Run("unknown chat id fails with not found", func(t *testing.T) {
		repo := NewMockInteractionRepo() // no known chats
		uc := usecase.NewInteractionUseCase(repo, newTestLogger())

		_, err := uc.Append(ctx, 99, model.InteractionMessage, "hi")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid kind is rejected before the repository", func(t *testing.T) {
		repo := NewMockInteractionRepo(1)
		repo.AppendFunc = func(context.Context, *model.InteractionRecord) error {
			t.Error("repository must not be reached for an invalid kind")
			return nil
		}
		uc := usecase.NewInteractionUseCase(repo, newTestLogger())

		_, err := uc.Append(ctx, 1, model.InteractionKind("bogus"), "x")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestInteractionUseCase_MostFrequent(t *testing.T) {
	ctx := context.Background()
	repo := NewMockInteractionRepo(1)
	uc := usecase.NewInteractionUseCase(repo, newTestLogger())

	for _, payload := range []string{"/stats", "/stats", "/start", "/help", "/help", "/about"} {
		if _, err := uc.Append(ctx, 1, model.InteractionCommand, payload); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}
	// A message with the same payload must not count toward commands.
	uc.Append(ctx, 1, model.InteractionMessage, "/stats")

	t.Run("orders by count, ties broken alphabetically", func(t *testing.T) {
		top, err := uc.MostFrequent(ctx, 1, model.InteractionCommand, 0) // 0 -> default limit 3
		if err != nil {
			t.Fatalf("MostFrequent failed: %v", err)
		}
		if len(top) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(top))
		}
		// /help and /stats both have 2; /help wins the tie alphabetically.
		want := []model.PayloadCount{
			{Payload: "/help", Count: 2},
			{Payload: "/stats", Count: 2},
			{Payload: "/about", Count: 1},
		}
		for i, w := range want {
			if top[i] != w {
				t.Errorf("row %d: expected %+v, got %+v", i, w, top[i])
			}
		}
	})
}

func TestInteractionUseCase_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewMockInteractionRepo(1)
	uc := usecase.NewInteractionUseCase(repo, newTestLogger())

	old, _ := model.NewInteractionRecord(1, model.InteractionMessage, "ancient")
	old.OccurredAt = time.Now().Add(-60 * 24 * time.Hour)
	repo.Append(ctx, nil, old)

	if _, err := uc.Append(ctx, 1, model.InteractionMessage, "recent"); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}

	deleted, err := uc.PurgeOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted record, got %d", deleted)
	}

	t.Run("running it again deletes nothing", func(t *testing.T) {
		deleted, err := uc.PurgeOlderThan(ctx, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("second purge failed: %v", err)
		}
		if deleted != 0 {
			t.Errorf("expected idempotent purge, got %d deletions", deleted)
		}
	})

	t.Run("recent records survive", func(t *testing.T) {
		recent, _ := uc.ListRecent(ctx, 1, 10)
		if len(recent) != 1 || recent[0].Payload != "recent" {
			t.Errorf("unexpected surviving records: %v", recent)
		}
	})
}

func TestInteractionUseCase_CountSince(t *testing.T) {
	ctx := context.Background()
	repo := NewMockInteractionRepo(1, 2)
	uc := usecase.NewInteractionUseCase(repo, newTestLogger())

	stale, _ := model.NewInteractionRecord(1, model.InteractionMessage, "old")
	stale.OccurredAt = time.Now().Add(-48 * time.Hour)
	repo.Append(ctx, nil, stale)

	uc.Append(ctx, 1, model.InteractionCommand, "/start")
	uc.Append(ctx, 1, model.InteractionMessage, "hello")
	uc.Append(ctx, 2, model.InteractionMessage, "other chat")

	n, err := uc.CountSince(ctx, 1, 24*time.Hour)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 recent interactions for chat 1, got %d", n)
	}

	all, err := uc.CountAllSince(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CountAllSince failed: %v", err)
	}
	if all != 3 {
		t.Errorf("expected 3 recent interactions overall, got %d", all)
	}
}
