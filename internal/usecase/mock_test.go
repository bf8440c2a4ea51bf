//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/domain/ports/adapter"
	"telegram-bot-platform/internal/domain/ports/repository"
	"telegram-bot-platform/internal/infra/worker"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// newTestPool returns a started worker pool sized for tests. The cancel
// function must be deferred so workers exit.
func newTestPool(t interface{ Cleanup(func()) }) *worker.Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := worker.NewPool(4, newTestLogger())
	p.Start(ctx)
	t.Cleanup(func() {
		cancel()
		p.Stop()
	})
	return p
}

// =============================
// Repositories
// =============================

// ---- Mock DirectoryRepository ----

// MockDirectoryRepo is an in-memory DirectoryRepository with overridable
// behavior per method.
type MockDirectoryRepo struct {
	mu      sync.Mutex
	entries map[int64]*model.DirectoryEntry

	UpsertFunc     func(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error)
	ListActiveFunc func(ctx context.Context) ([]*model.DirectoryEntry, error)
}

var _ repository.DirectoryRepository = (*MockDirectoryRepo)(nil)

func NewMockDirectoryRepo() *MockDirectoryRepo {
	return &MockDirectoryRepo{entries: map[int64]*model.DirectoryEntry{}}
}

// Seed inserts an entry directly, bypassing upsert semantics.
func (m *MockDirectoryRepo) Seed(e *model.DirectoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ChatID] = &cp
}

func (m *MockDirectoryRepo) Upsert(ctx context.Context, _ repository.Tx, chatID int64, username, firstName, lastName string) (*model.DirectoryEntry, bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, chatID, username, firstName, lastName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[chatID]; ok {
		if username != "" {
			existing.Username = username
		}
		if firstName != "" {
			existing.FirstName = firstName
		}
		if lastName != "" {
			existing.LastName = lastName
		}
		existing.LastInteractionAt = time.Now()
		cp := *existing
		return &cp, false, nil
	}
	entry, err := model.NewDirectoryEntry(chatID, username, firstName, lastName)
	if err != nil {
		return nil, false, err
	}
	m.entries[chatID] = entry
	cp := *entry
	return &cp, true, nil
}

func (m *MockDirectoryRepo) FindByChatID(_ context.Context, _ repository.Tx, chatID int64) (*model.DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockDirectoryRepo) SetActive(_ context.Context, _ repository.Tx, chatID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[chatID]
	if !ok {
		return domain.ErrNotFound
	}
	e.IsActive = active
	return nil
}

func (m *MockDirectoryRepo) sorted() []*model.DirectoryEntry {
	out := make([]*model.DirectoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MockDirectoryRepo) ListActive(ctx context.Context, _ repository.Tx) ([]*model.DirectoryEntry, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DirectoryEntry
	for _, e := range m.sorted() {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockDirectoryRepo) List(_ context.Context, _ repository.Tx, offset, limit int) ([]*model.DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockDirectoryRepo) Rank(_ context.Context, _ repository.Tx, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.sorted() {
		if e.ChatID == chatID {
			return i + 1, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (m *MockDirectoryRepo) Count(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *MockDirectoryRepo) CountCreatedSince(_ context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ---- Mock InteractionRepository ----

type MockInteractionRepo struct {
	mu      sync.Mutex
	records []*model.InteractionRecord
	nextID  int64

	// KnownChats emulates the foreign key: Append fails with ErrNotFound for
	// chat ids not present here.
	KnownChats map[int64]bool

	AppendFunc func(ctx context.Context, rec *model.InteractionRecord) error
}

var _ repository.InteractionRepository = (*MockInteractionRepo)(nil)

func NewMockInteractionRepo(knownChats ...int64) *MockInteractionRepo {
	known := map[int64]bool{}
	for _, id := range knownChats {
		known[id] = true
	}
	return &MockInteractionRepo{KnownChats: known, nextID: 1}
}

func (m *MockInteractionRepo) Append(ctx context.Context, _ repository.Tx, rec *model.InteractionRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.KnownChats[rec.ChatID] {
		return domain.ErrNotFound
	}
	rec.ID = m.nextID
	m.nextID++
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *MockInteractionRepo) ListRecent(_ context.Context, _ repository.Tx, chatID int64, limit int) ([]*model.InteractionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.InteractionRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ChatID == chatID {
			cp := *m.records[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockInteractionRepo) CountSince(_ context.Context, _ repository.Tx, chatID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.ChatID == chatID && !r.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockInteractionRepo) CountAllSince(_ context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if !r.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockInteractionRepo) CountTotal(_ context.Context, _ repository.Tx, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.ChatID == chatID {
			n++
		}
	}
	return n, nil
}

func (m *MockInteractionRepo) CountActiveChatsSince(_ context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	for _, r := range m.records {
		if !r.OccurredAt.Before(since) {
			seen[r.ChatID] = true
		}
	}
	return len(seen), nil
}

func (m *MockInteractionRepo) MostFrequent(_ context.Context, _ repository.Tx, chatID int64, kind model.InteractionKind, limit int) ([]model.PayloadCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, r := range m.records {
		if r.ChatID == chatID && r.Kind == kind {
			counts[r.Payload]++
		}
	}
	out := make([]model.PayloadCount, 0, len(counts))
	for p, c := range counts {
		out = append(out, model.PayloadCount{Payload: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Payload < out[j].Payload
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockInteractionRepo) PurgeOlderThan(_ context.Context, _ repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.InteractionRecord
	var deleted int64
	for _, r := range m.records {
		if r.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// ---- Mock BroadcastRepository ----

type MockBroadcastRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.BroadcastJob
	claimedAt map[string]time.Time

	ClaimFunc    func(ctx context.Context, id string) (bool, error)
	CompleteFunc func(ctx context.Context, job *model.BroadcastJob) error
}

var _ repository.BroadcastRepository = (*MockBroadcastRepo)(nil)

func NewMockBroadcastRepo() *MockBroadcastRepo {
	return &MockBroadcastRepo{
		jobs:      map[string]*model.BroadcastJob{},
		claimedAt: map[string]time.Time{},
	}
}

func (m *MockBroadcastRepo) Create(_ context.Context, _ repository.Tx, job *model.BroadcastJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockBroadcastRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.BroadcastJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MockBroadcastRepo) Claim(ctx context.Context, _ repository.Tx, id string) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if j.Status != model.BroadcastPending {
		return false, nil
	}
	j.Status = model.BroadcastInFlight
	m.claimedAt[id] = time.Now()
	return true, nil
}

// SeedClaimedAt backdates a claim so stale-job tests do not have to sleep.
func (m *MockBroadcastRepo) SeedClaimedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimedAt[id] = at
}

func (m *MockBroadcastRepo) Complete(ctx context.Context, _ repository.Tx, job *model.BroadcastJob) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.BroadcastInFlight {
		return domain.ErrBroadcastAlreadySent
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockBroadcastRepo) Release(_ context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = model.BroadcastPending
	delete(m.claimedAt, id)
	return nil
}

func (m *MockBroadcastRepo) List(_ context.Context, _ repository.Tx, offset, limit int) ([]*model.BroadcastJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.BroadcastJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockBroadcastRepo) FindStaleInFlight(_ context.Context, _ repository.Tx, cutoff time.Time) ([]*model.BroadcastJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BroadcastJob
	for id, j := range m.jobs {
		if j.Status == model.BroadcastInFlight && m.claimedAt[id].Before(cutoff) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock AccountRepository ----

type MockAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // keyed by ID
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{accounts: map[string]*model.Account{}}
}

func (m *MockAccountRepo) Save(_ context.Context, _ repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MockAccountRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) LinkChat(_ context.Context, _ repository.Tx, accountID string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.ChatID = &chatID
	return nil
}

func (m *MockAccountRepo) TouchLogin(_ context.Context, _ repository.Tx, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	a.LastLoginAt = &now
	return nil
}

func (m *MockAccountRepo) Count(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts), nil
}

// =============================
// Adapters and infrastructure
// =============================

// ---- Mock TelegramBotAdapter ----

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, chatID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockTelegramBot) SendButtons(ctx context.Context, chatID int64, text string, _ [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, chatID, text)
}

func (m *MockTelegramBot) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Mock Mailer ----

type MockMailer struct {
	mu   sync.Mutex
	Sent []string // recipient addresses

	SendWelcomeFunc func(ctx context.Context, to, displayName, username string) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) SendWelcome(ctx context.Context, to, displayName, username string) error {
	if m.SendWelcomeFunc != nil {
		return m.SendWelcomeFunc(ctx, to, displayName, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, to)
	return nil
}

// ---- Mock Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := "tok-" + key
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct{}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
