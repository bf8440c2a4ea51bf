//go:build !integration

package web

import (
	"context"
	"time"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/usecase"
)

// --- Mock use cases ---
//
// Each mock embeds its interface for forward compatibility and implements
// only the methods the handlers under test actually reach.

type mockDirectoryUC struct {
	usecase.DirectoryUseCase
	entries []*model.DirectoryEntry

	ListError error
}

func (m *mockDirectoryUC) List(_ context.Context, offset, limit int) ([]*model.DirectoryEntry, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	if offset >= len(m.entries) {
		return []*model.DirectoryEntry{}, nil
	}
	return m.entries[offset:end], nil
}

func (m *mockDirectoryUC) Count(context.Context) (int, error) {
	return len(m.entries), nil
}

func (m *mockDirectoryUC) GetByChatID(_ context.Context, chatID int64) (*model.DirectoryEntry, error) {
	for _, e := range m.entries {
		if e.ChatID == chatID {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockStatsUC struct {
	usecase.StatsUseCase
	report *usecase.DailyReport
	stats  *usecase.UserStats
}

func (m *mockStatsUC) DailyReport(context.Context) (*usecase.DailyReport, error) {
	return m.report, nil
}

func (m *mockStatsUC) UserStats(context.Context, int64) (*usecase.UserStats, error) {
	return m.stats, nil
}

type mockBroadcastUC struct {
	usecase.BroadcastUseCase
	jobs map[string]*model.BroadcastJob

	ExecuteError error
}

func newMockBroadcastUC() *mockBroadcastUC {
	return &mockBroadcastUC{jobs: map[string]*model.BroadcastJob{}}
}

func (m *mockBroadcastUC) Create(_ context.Context, title, body, createdBy string) (*model.BroadcastJob, error) {
	job, err := model.NewBroadcastJob(title, body, createdBy)
	if err != nil {
		return nil, err
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockBroadcastUC) Get(_ context.Context, id string) (*model.BroadcastJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockBroadcastUC) List(context.Context, int, int) ([]*model.BroadcastJob, error) {
	out := make([]*model.BroadcastJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockBroadcastUC) Execute(_ context.Context, id string) (*model.BroadcastJob, error) {
	if m.ExecuteError != nil {
		return nil, m.ExecuteError
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job.Complete(3, 3, 0, time.Now())
	return job, nil
}

type mockAccountUC struct {
	usecase.AccountUseCase
	accounts map[string]*model.Account // keyed by username
	linked   *model.DirectoryEntry

	password string // accepted password for Login
}

func newMockAccountUC() *mockAccountUC {
	return &mockAccountUC{accounts: map[string]*model.Account{}, password: "s3cret"}
}

func (m *mockAccountUC) Register(_ context.Context, username, email, password, firstName, lastName string) (*model.Account, error) {
	if username == "" || email == "" || password == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, ok := m.accounts[username]; ok {
		return nil, domain.ErrAlreadyExists
	}
	account, err := model.NewAccount(username, email, "hash", firstName, lastName)
	if err != nil {
		return nil, err
	}
	m.accounts[username] = account
	return account, nil
}

func (m *mockAccountUC) Login(_ context.Context, username, password string) (*model.Account, error) {
	account, ok := m.accounts[username]
	if !ok || password != m.password {
		return nil, domain.ErrInvalidCredentials
	}
	return account, nil
}

func (m *mockAccountUC) GetByID(_ context.Context, id string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockAccountUC) LinkedEntry(context.Context, string) (*model.DirectoryEntry, error) {
	return m.linked, nil
}

func (m *mockAccountUC) Count(context.Context) (int, error) {
	return len(m.accounts), nil
}
