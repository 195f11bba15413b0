package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// MemoryUserRepository keeps accounts in process memory. Records are copied
// on the way in and out so callers never alias stored state.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewMemoryUserRepository builds an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return ErrDuplicate
	}
	if _, exists := m.byID[user.ID]; exists {
		return ErrDuplicate
	}
	m.byID[user.ID] = user.Clone()
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Email != user.Email {
		if _, taken := m.byEmail[user.Email]; taken {
			return ErrDuplicate
		}
		delete(m.byEmail, current.Email)
		m.byEmail[user.Email] = user.ID
	}
	m.byID[user.ID] = user.Clone()
	return nil
}

func (m *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, current.Email)
	delete(m.byID, id)
	return nil
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		return u.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return m.byID[id].Clone(), nil
}

// MemoryIssueRepository keeps issues in process memory.
type MemoryIssueRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.Issue
}

// NewMemoryIssueRepository builds an empty store.
func NewMemoryIssueRepository() *MemoryIssueRepository {
	return &MemoryIssueRepository{store: make(map[string]*domain.Issue)}
}

func (m *MemoryIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[issue.ID]; exists {
		return ErrDuplicate
	}
	m.store[issue.ID] = issue.Clone()
	return nil
}

func (m *MemoryIssueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[issue.ID]; !ok {
		return ErrNotFound
	}
	m.store[issue.ID] = issue.Clone()
	return nil
}

func (m *MemoryIssueRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryIssueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if issue, ok := m.store[id]; ok {
		return issue.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryIssueRepository) List(ctx context.Context, opts IssueListOptions) (*IssuePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]domain.Issue, 0, len(m.store))
	for _, issue := range m.store {
		all = append(all, *issue.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return issueBefore(all[i].CreatedAt, all[i].ID, all[j].CreatedAt, all[j].ID)
	})

	start := 0
	if opts.After != nil {
		start = sort.Search(len(all), func(i int) bool {
			return issueBefore(opts.After.CreatedAt, opts.After.ID, all[i].CreatedAt, all[i].ID)
		})
	}
	rest := all[start:]
	if opts.Limit > 0 && len(rest) > opts.Limit+1 {
		rest = rest[:opts.Limit+1]
	}
	return pageOf(rest, opts.Limit), nil
}
