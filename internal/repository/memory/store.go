package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/repository"
)

// Store is the in-memory QueueStore: a single mutex over two maps. It backs
// tests and single-node deployments; the redis store is the clustered path.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*models.QueueEntry
	seqs    map[string]int64
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*models.QueueEntry),
		seqs:    make(map[string]int64),
	}
}

func (s *Store) CreateEntry(_ context.Context, e *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("duplicate entry id: %s", e.ID)
	}

	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *Store) GetEntry(_ context.Context, id string) (*models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *Store) ListByDepartment(_ context.Context, d models.Department) ([]*models.QueueEntry, error) {
	s.mu.RLock()
	out := make([]*models.QueueEntry, 0)
	for _, e := range s.entries {
		if e.Department == d {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	repository.SortEntries(out)
	return out, nil
}

func (s *Store) ListAll(_ context.Context) (map[models.Department][]*models.QueueEntry, error) {
	s.mu.RLock()
	byDept := make(map[models.Department][]*models.QueueEntry)
	for _, e := range s.entries {
		byDept[e.Department] = append(byDept[e.Department], e.Clone())
	}
	s.mu.RUnlock()

	for _, entries := range byDept {
		repository.SortEntries(entries)
	}
	return byDept, nil
}

func (s *Store) ClaimNext(_ context.Context, d models.Department, staffID string, slots int, now time.Time) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	serving := 0
	var best *models.QueueEntry
	for _, e := range s.entries {
		if e.Department != d {
			continue
		}
		switch e.Status {
		case models.EntryStatusServing:
			serving++
		case models.EntryStatusWaiting:
			if best == nil || less(e, best) {
				best = e
			}
		}
	}

	if best == nil || serving >= slots {
		return nil, repository.ErrNoneWaiting
	}

	called := now
	best.Status = models.EntryStatusServing
	best.CalledAt = &called
	best.ServedBy = staffID

	return best.Clone(), nil
}

func (s *Store) CompleteEntry(_ context.Context, id string, now time.Time, next *models.QueueEntry) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Status != models.EntryStatusServing {
		return nil, fmt.Errorf("complete from %s: %w", e.Status, repository.ErrConflict)
	}

	// Validate the routed entry before touching anything: a failed
	// complete+route must leave the old entry serving.
	if next != nil {
		if _, ok := s.entries[next.ID]; ok {
			return nil, fmt.Errorf("duplicate entry id: %s", next.ID)
		}
	}

	completed := now
	e.Status = models.EntryStatusCompleted
	e.CompletedAt = &completed

	if next != nil {
		e.RoutedTo = next.ID
		s.entries[next.ID] = next.Clone()
	}

	return e.Clone(), nil
}

func (s *Store) SkipEntry(_ context.Context, id, reason string, now time.Time) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Status != models.EntryStatusWaiting {
		return nil, fmt.Errorf("skip from %s: %w", e.Status, repository.ErrConflict)
	}

	skipped := now
	e.Status = models.EntryStatusSkipped
	e.SkippedAt = &skipped
	e.SkipReason = reason

	return e.Clone(), nil
}

func (s *Store) SetPriority(_ context.Context, id string, p models.Priority) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Status != models.EntryStatusWaiting {
		return nil, fmt.Errorf("reprioritize from %s: %w", e.Status, repository.ErrConflict)
	}

	e.Priority = p
	return e.Clone(), nil
}

func (s *Store) RemoveEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if e.IsTerminal() {
		return fmt.Errorf("remove from %s: %w", e.Status, repository.ErrConflict)
	}

	delete(s.entries, id)
	return nil
}

func (s *Store) NextQueueNumber(_ context.Context, d models.Department, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(d) + "|" + day
	s.seqs[key]++
	return s.seqs[key], nil
}

// less is the selection order: priority tier, then arrival, then queue number.
func less(a, b *models.QueueEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.ArrivalTime.Equal(b.ArrivalTime) {
		return a.ArrivalTime.Before(b.ArrivalTime)
	}
	return a.QueueNumber < b.QueueNumber
}
