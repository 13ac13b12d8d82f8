package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hospiq/patient-queue/internal/models"
)

var (
	ErrNotFound = errors.New("queue entry not found")
	// ErrConflict marks a status check that failed inside an atomic store
	// operation (e.g. completing an entry another terminal already skipped).
	ErrConflict = errors.New("queue entry status conflict")
	// ErrNoneWaiting is the empty-result signal from ClaimNext: nothing waiting,
	// or every serving slot busy.
	ErrNoneWaiting = errors.New("no waiting entries")
)

// QueueStore owns all QueueEntry records. Every operation that changes an
// entry's status is atomic with respect to concurrent callers; reads return
// snapshots and never block writers beyond a snapshot read.
type QueueStore interface {
	CreateEntry(ctx context.Context, e *models.QueueEntry) error
	GetEntry(ctx context.Context, id string) (*models.QueueEntry, error)
	ListByDepartment(ctx context.Context, d models.Department) ([]*models.QueueEntry, error)
	ListAll(ctx context.Context) (map[models.Department][]*models.QueueEntry, error)

	// ClaimNext selects the waiting entry with the lowest priority value
	// (earliest arrival, then queue number, as tie-breaks) and flips it to
	// serving in a single atomic step. slots caps concurrent serving entries
	// for the department. Returns ErrNoneWaiting when nothing is claimable.
	ClaimNext(ctx context.Context, d models.Department, staffID string, slots int, now time.Time) (*models.QueueEntry, error)

	// CompleteEntry transitions serving -> completed. When next is non-nil it
	// is created in the same atomic step and the two entries are linked via
	// RoutedFrom/RoutedTo; readers never observe one side without the other.
	CompleteEntry(ctx context.Context, id string, now time.Time, next *models.QueueEntry) (*models.QueueEntry, error)

	// SkipEntry transitions waiting -> skipped.
	SkipEntry(ctx context.Context, id, reason string, now time.Time) (*models.QueueEntry, error)

	// SetPriority updates the priority of a waiting entry in place. Arrival
	// time is untouched, so the entry keeps its position within the new tier.
	SetPriority(ctx context.Context, id string, p models.Priority) (*models.QueueEntry, error)

	// RemoveEntry hard-deletes from any non-terminal status. Removing an
	// absent id is a no-op.
	RemoveEntry(ctx context.Context, id string) error

	// NextQueueNumber returns the next sequence value for a department-day.
	// Values are never reused within the same department-day.
	NextQueueNumber(ctx context.Context, d models.Department, day string) (int64, error)
}

// statusRank orders a department listing the way the dashboards render it:
// the now-serving card first, then the waiting queue, then today's history.
var statusRank = map[models.EntryStatus]int{
	models.EntryStatusServing:   0,
	models.EntryStatusWaiting:   1,
	models.EntryStatusSkipped:   2,
	models.EntryStatusCompleted: 3,
}

// SortEntries sorts a department snapshot in display order. Waiting entries
// follow selection order; everything else falls back to arrival order with the
// queue number as the final deterministic key.
func SortEntries(entries []*models.QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if statusRank[a.Status] != statusRank[b.Status] {
			return statusRank[a.Status] < statusRank[b.Status]
		}
		if a.Status == models.EntryStatusWaiting && a.QueueScore() != b.QueueScore() {
			return a.QueueScore() < b.QueueScore()
		}
		if !a.ArrivalTime.Equal(b.ArrivalTime) {
			return a.ArrivalTime.Before(b.ArrivalTime)
		}
		return a.QueueNumber < b.QueueNumber
	})
}
