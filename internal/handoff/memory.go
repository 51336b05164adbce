package handoff

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps the handoff in process memory
type MemoryStore struct {
	mu sync.Mutex
	h  Handoff
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.h), nil
}

func (m *MemoryStore) Save(ctx context.Context, h Handoff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.UpdatedAt = time.Now()
	m.h = clone(h)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, fn func(*Handoff) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := clone(m.h)
	if err := fn(&h); err != nil {
		return err
	}
	h.UpdatedAt = time.Now()
	m.h = h
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h = Handoff{}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// clone copies the pointer fields so callers cannot mutate stored state
func clone(h Handoff) Handoff {
	if h.ApplicationForm != nil {
		form := *h.ApplicationForm
		h.ApplicationForm = &form
	}
	if h.InterviewResult != nil {
		sc := *h.InterviewResult
		sc.Strengths = slices.Clone(sc.Strengths)
		sc.Improvements = slices.Clone(sc.Improvements)
		h.InterviewResult = &sc
	}
	if h.User != nil {
		u := *h.User
		h.User = &u
	}
	return h
}
