// Package servicetest provides an in-memory account store for engine tests.
package servicetest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/repository"
)

// MemoryAccounts implements service.Accounts in memory.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account

	// FailAddFor makes AddBalance fail with model.ErrStorageUnavailable
	// for the listed ids.
	FailAddFor map[int64]bool
}

// NewMemoryAccounts returns an empty store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		accounts:   make(map[int64]*model.Account),
		FailAddFor: make(map[int64]bool),
	}
}

// Seed registers id with the given balance.
func (m *MemoryAccounts) Seed(id int64, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.accounts[id] = &model.Account{ID: id, Balance: balance, CreatedAt: now, UpdatedAt: now}
}

// Snapshot returns a copy of the account, or nil.
func (m *MemoryAccounts) Snapshot(id int64) *model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	c := *a
	return &c
}

func (m *MemoryAccounts) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[id]
	return ok, nil
}

func (m *MemoryAccounts) Create(_ context.Context, id int64, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; ok {
		return nil, repository.ErrAccountExists
	}
	now := time.Now()
	a := &model.Account{ID: id, Username: username, CreatedAt: now, UpdatedAt: now}
	m.accounts[id] = a
	c := *a
	return &c, nil
}

func (m *MemoryAccounts) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemoryAccounts) GetByID(_ context.Context, id int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (m *MemoryAccounts) GetBalance(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	return a.Balance, nil
}

func (m *MemoryAccounts) AddBalance(_ context.Context, id int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAddFor[id] {
		return 0, model.ErrStorageUnavailable
	}
	a, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	a.Balance += delta
	return a.Balance, nil
}

func (m *MemoryAccounts) Debit(_ context.Context, id int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	if a.Balance < amount {
		return 0, model.ErrInsufficientBalance
	}
	a.Balance -= amount
	return a.Balance, nil
}

func (m *MemoryAccounts) SetBalance(_ context.Context, id int64, balance int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	a.Balance = balance
	return a.Balance, nil
}

func (m *MemoryAccounts) Claim(_ context.Context, id int64, now int64, decide repository.ClaimDecision) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, false, repository.ErrAccountNotFound
	}
	award, grant := decide(a.LastClaimTime)
	if !grant {
		return a.Balance, false, nil
	}
	a.Balance += award
	a.LastClaimTime = now
	return a.Balance, true, nil
}

func (m *MemoryAccounts) GetTop(_ context.Context, limit int) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		c := *a
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.Account) int {
		if c := cmp.Compare(b.Balance, a.Balance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryAccounts) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Username = username
	return nil
}
