// Package storage persists review report drafts and per-session stash
// bookkeeping. A Postgres implementation backs the service; an in-memory
// implementation backs the CLI and tests.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/sevigo/lyric-warden/internal/core"
)

// Store defines the interface for all database operations.
type Store interface {
	// UpsertDraft inserts the draft when its ID is zero, otherwise updates
	// the existing row. The draft's ID is filled in on insert.
	UpsertDraft(ctx context.Context, draft *core.ReportDraft) error
	// FindDraft returns the draft for a PR (matched by number, or by title
	// when the number is zero), or nil when none exists.
	FindDraft(ctx context.Context, prNumber int, prTitle string) (*core.ReportDraft, error)
	ListDrafts(ctx context.Context) ([]core.ReportDraft, error)
	DeleteDraft(ctx context.Context, id int64) error

	// GetStashState returns the persisted stash bookkeeping for a session
	// key, or nil when none exists.
	GetStashState(ctx context.Context, key core.SessionKey) (*core.StashState, error)
	PutStashState(ctx context.Context, key core.SessionKey, state *core.StashState) error
}

// memoryStore is the process-local Store used when no database is configured.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	drafts map[int64]*core.ReportDraft
	stash  map[core.SessionKey]*core.StashState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		nextID: 1,
		drafts: make(map[int64]*core.ReportDraft),
		stash:  make(map[core.SessionKey]*core.StashState),
	}
}

func (m *memoryStore) UpsertDraft(_ context.Context, draft *core.ReportDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if draft.ID == 0 {
		draft.ID = m.nextID
		m.nextID++
	}
	copied := *draft
	m.drafts[draft.ID] = &copied
	return nil
}

func (m *memoryStore) FindDraft(_ context.Context, prNumber int, prTitle string) (*core.ReportDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.drafts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if m.drafts[id].Matches(prNumber, prTitle) {
			copied := *m.drafts[id]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ListDrafts(_ context.Context) ([]core.ReportDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.ReportDraft, 0, len(m.drafts))
	for _, draft := range m.drafts {
		out = append(out, *draft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteDraft(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

func (m *memoryStore) GetStashState(_ context.Context, key core.SessionKey) (*core.StashState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.stash[key]
	if !ok {
		return nil, nil
	}
	copied := core.StashState{
		Submitted:     append([]string(nil), state.Submitted...),
		LastSelection: append([]string(nil), state.LastSelection...),
	}
	return &copied, nil
}

func (m *memoryStore) PutStashState(_ context.Context, key core.SessionKey, state *core.StashState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stash[key] = &core.StashState{
		Submitted:     append([]string(nil), state.Submitted...),
		LastSelection: append([]string(nil), state.LastSelection...),
	}
	return nil
}
