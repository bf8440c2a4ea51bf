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

func TestDirectoryUseCase_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("first contact creates the entry", func(t *testing.T) {
		repo := NewMockDirectoryRepo()
		uc := usecase.NewDirectoryUseCase(repo, newTestLogger())

		entry, created, err := uc.Upsert(ctx, 42, "alice", "Alice", "Smith")
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if !created {
			t.Error("expected created=true on first contact")
		}
		if entry.ChatID != 42 || entry.Username != "alice" {
			t.Errorf("unexpected entry: %+v", entry)
		}
		if !entry.IsActive {
			t.Error("new entries must start active")
		}
	})

	t.Run("second contact updates, does not duplicate", func(t *testing.T) {
		repo := NewMockDirectoryRepo()
		uc := usecase.NewDirectoryUseCase(repo, newTestLogger())

		uc.Upsert(ctx, 42, "alice", "Alice", "")
		entry, created, err := uc.Upsert(ctx, 42, "alice_new", "", "")
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if created {
			t.Error("expected created=false on repeat contact")
		}
		if entry.Username != "alice_new" {
			t.Errorf("expected updated username, got %q", entry.Username)
		}
		if n, _ := uc.Count(ctx); n != 1 {
			t.Errorf("expected exactly 1 entry, got %d", n)
		}
	})

	t.Run("absent incoming fields preserve stored values", func(t *testing.T) {
		repo := NewMockDirectoryRepo()
		uc := usecase.NewDirectoryUseCase(repo, newTestLogger())

		uc.Upsert(ctx, 7, "bob", "Bob", "Jones")
		entry, _, err := uc.Upsert(ctx, 7, "", "", "")
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if entry.Username != "bob" || entry.FirstName != "Bob" || entry.LastName != "Jones" {
			t.Errorf("stored fields were clobbered: %+v", entry)
		}
	})

	t.Run("rejects a non-positive chat id", func(t *testing.T) {
		uc := usecase.NewDirectoryUseCase(NewMockDirectoryRepo(), newTestLogger())

		for _, id := range []int64{0, -5} {
			if _, _, err := uc.Upsert(ctx, id, "x", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("chat id %d: expected ErrInvalidArgument, got %v", id, err)
			}
		}
	})
}

func TestDirectoryUseCase_ActivationToggle(t *testing.T) {
	ctx := context.Background()
	repo := NewMockDirectoryRepo()
	uc := usecase.NewDirectoryUseCase(repo, newTestLogger())

	uc.Upsert(ctx, 1, "a", "", "")
	uc.Upsert(ctx, 2, "b", "", "")

	t.Run("deactivated entries drop out of the broadcast set", func(t *testing.T) {
		if err := uc.Deactivate(ctx, 2); err != nil {
			t.Fatalf("Deactivate failed: %v", err)
		}
		active, err := uc.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive failed: %v", err)
		}
		if len(active) != 1 || active[0].ChatID != 1 {
			t.Errorf("expected only chat 1 active, got %v", active)
		}
	})

	t.Run("reactivation brings the entry back", func(t *testing.T) {
		if err := uc.Activate(ctx, 2); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		active, _ := uc.ListActive(ctx)
		if len(active) != 2 {
			t.Errorf("expected 2 active entries, got %d", len(active))
		}
	})

	t.Run("toggling an unknown chat id fails loudly", func(t *testing.T) {
		if err := uc.Deactivate(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := uc.Activate(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDirectoryUseCase_Rank(t *testing.T) {
	ctx := context.Background()
	repo := NewMockDirectoryRepo()
	uc := usecase.NewDirectoryUseCase(repo, newTestLogger())

	base := time.Now().Add(-3 * time.Hour)
	for i, chatID := range []int64{10, 20, 30} {
		repo.Seed(&model.DirectoryEntry{
			ChatID:    chatID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			IsActive:  true,
		})
	}

	rank, err := uc.Rank(ctx, 20)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if rank != 2 {
		t.Errorf("expected rank 2 for the second-oldest entry, got %d", rank)
	}
}
