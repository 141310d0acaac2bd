package repo

import (
	"context"
	"sync"

	"fundledger/internal/domain"
)

// MemoryJournal keeps events in process memory. State does not survive a
// restart; it backs JOURNAL_DRIVER=memory and tests.
type MemoryJournal struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, ev domain.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *MemoryJournal) Load(_ context.Context) ([]domain.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.Event, len(j.events))
	copy(out, j.events)
	return out, nil
}
