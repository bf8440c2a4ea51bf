package usecase

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/repository"
	"telegram-bot-platform/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// UserStats is what the bot renders for "My Stats".
type UserStats struct {
	TotalInteractions  int
	RecentInteractions int // last 7 days
	MemberSince        time.Time
	Rank               int
	TotalEntries       int
	TopCommands        []model.PayloadCount
}

// DailyReport aggregates one day of platform activity.
type DailyReport struct {
	Date              time.Time `json:"date"`
	NewEntriesToday   int       `json:"new_entries_today"`
	TotalEntries      int       `json:"total_entries"`
	ActiveToday       int       `json:"active_today"`
	InteractionsToday int       `json:"interactions_today"`
	GrowthRatePct     float64   `json:"growth_rate_pct"`
}

type StatsUseCase interface {
	UserStats(ctx context.Context, chatID int64) (*UserStats, error)
	DailyReport(ctx context.Context) (*DailyReport, error)
}

type statsUC struct {
	entries repository.DirectoryRepository
	records repository.InteractionRepository
	log     *zerolog.Logger
}

func NewStatsUseCase(entries repository.DirectoryRepository, records repository.InteractionRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{entries: entries, records: records, log: logger}
}

func (s *statsUC) UserStats(ctx context.Context, chatID int64) (*UserStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.UserStats")()

	entry, err := s.entries.FindByChatID(ctx, repository.NoTX, chatID)
	if err != nil {
		return nil, err
	}
	total, err := s.records.CountTotal(ctx, repository.NoTX, chatID)
	if err != nil {
		return nil, err
	}
	recent, err := s.records.CountSince(ctx, repository.NoTX, chatID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	rank, err := s.entries.Rank(ctx, repository.NoTX, chatID)
	if err != nil {
		return nil, err
	}
	totalEntries, err := s.entries.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	top, err := s.records.MostFrequent(ctx, repository.NoTX, chatID, model.InteractionCommand, 3)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		TotalInteractions:  total,
		RecentInteractions: recent,
		MemberSince:        entry.CreatedAt,
		Rank:               rank,
		TotalEntries:       totalEntries,
		TopCommands:        top,
	}, nil
}

func (s *statsUC) DailyReport(ctx context.Context) (*DailyReport, error) {
	defer logging.TraceDuration(s.log, "StatsUC.DailyReport")()

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	newToday, err := s.entries.CountCreatedSince(ctx, repository.NoTX, midnight)
	if err != nil {
		return nil, err
	}
	total, err := s.entries.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	activeToday, err := s.records.CountActiveChatsSince(ctx, repository.NoTX, midnight)
	if err != nil {
		return nil, err
	}
	interactionsToday, err := s.records.CountAllSince(ctx, repository.NoTX, midnight)
	if err != nil {
		return nil, err
	}

	base := total - newToday
	if base < 1 {
		base = 1
	}
	return &DailyReport{
		Date:              midnight,
		NewEntriesToday:   newToday,
		TotalEntries:      total,
		ActiveToday:       activeToday,
		InteractionsToday: interactionsToday,
		GrowthRatePct:     float64(newToday) / float64(base) * 100,
	}, nil
}
