package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hospiq/patient-queue/config"
	kafka "github.com/hospiq/patient-queue/internal/delivery/kafka"
	"github.com/hospiq/patient-queue/internal/delivery/kafka/producer"
	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/repository"
	"github.com/hospiq/patient-queue/pkg/logger"
	"github.com/hospiq/patient-queue/pkg/util"
)

type QueueService interface {
	CheckIn(ctx context.Context, in CheckInInput) (*models.QueueEntry, error)
	CallNext(ctx context.Context, d models.Department, staffID string) (*models.QueueEntry, error)
	CompleteService(ctx context.Context, in CompleteInput) (*CompleteOutput, error)
	SkipPatient(ctx context.Context, entryID, reason string) (*models.QueueEntry, error)
	SetPriorityLevel(ctx context.Context, entryID string, p models.Priority) (*models.QueueEntry, error)
	RemoveFromQueue(ctx context.Context, entryID string) error

	Queue(ctx context.Context, d models.Department) ([]*models.QueueEntry, error)
	AllQueues(ctx context.Context) (map[models.Department][]*models.QueueEntry, error)

	DepartmentAnalytics(ctx context.Context, d models.Department) (*models.QueueAnalyticsSnapshot, error)
	QueueAnalytics(ctx context.Context) ([]*models.QueueAnalyticsSnapshot, error)
	QueueStats(ctx context.Context) (*models.QueueStats, error)
}

type queueService struct {
	store repository.QueueStore
	prod  producer.Producer
	cfg   config.QueueConfig
	l     logger.Logger
	now   func() time.Time
}

func NewQueueService(
	store repository.QueueStore,
	prod producer.Producer,
	cfg config.QueueConfig,
	l logger.Logger,
) QueueService {
	return &queueService{
		store: store,
		prod:  prod,
		cfg:   cfg,
		l:     l,
		now:   time.Now,
	}
}

func (s *queueService) CheckIn(ctx context.Context, in CheckInInput) (*models.QueueEntry, error) {
	if strings.TrimSpace(in.PatientID) == "" || strings.TrimSpace(in.PatientName) == "" {
		return nil, fmt.Errorf("patient id and name are required: %w", ErrInvalidInput)
	}

	if !in.Department.Valid() {
		return nil, fmt.Errorf("%q: %w", in.Department, ErrInvalidDepartment)
	}

	priority := in.Priority
	if priority == 0 {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("priority %d: %w", priority, ErrInvalidInput)
	}

	now := s.now()
	entry, err := s.newEntry(ctx, in, priority, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		s.l.Errorf(ctx, "service.queueService.CheckIn: %v", err)
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	if s.prod != nil {
		if err := s.prod.PublishPatientCheckedIn(ctx, kafka.PatientCheckedInEvent{
			EntryID:     entry.ID,
			QueueNumber: entry.QueueNumber,
			PatientID:   entry.PatientID,
			Department:  entry.Department,
			Priority:    entry.Priority,
			ArrivalTime: entry.ArrivalTime,
		}); err != nil {
			// Log error but don't fail the request
			s.l.Errorf(ctx, "service.queueService.CheckIn: publish: %v", err)
		}
	}

	s.l.Infof(ctx, "Patient checked in: %s (%s, priority %d)", entry.QueueNumber, entry.Department, entry.Priority)

	return entry, nil
}

func (s *queueService) CallNext(ctx context.Context, d models.Department, staffID string) (*models.QueueEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%q: %w", d, ErrInvalidDepartment)
	}
	if strings.TrimSpace(staffID) == "" {
		return nil, fmt.Errorf("staff id is required: %w", ErrInvalidInput)
	}

	slots := s.cfg.ServingSlotsFor(d)
	entry, err := s.store.ClaimNext(ctx, d, staffID, slots, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNoneWaiting) {
			return nil, ErrNoPatientsWaiting
		}

		s.l.Errorf(ctx, "service.queueService.CallNext: %v", err)
		return nil, fmt.Errorf("failed to claim next entry: %w", err)
	}

	if s.prod != nil {
		if err := s.prod.PublishPatientCalled(ctx, kafka.PatientCalledEvent{
			EntryID:     entry.ID,
			QueueNumber: entry.QueueNumber,
			PatientID:   entry.PatientID,
			Department:  entry.Department,
			ServedBy:    entry.ServedBy,
			CalledAt:    *entry.CalledAt,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.CallNext: publish: %v", err)
		}
	}

	s.l.Infof(ctx, "Patient called: %s (%s) by %s", entry.QueueNumber, entry.Department, staffID)

	return entry, nil
}

func (s *queueService) CompleteService(ctx context.Context, in CompleteInput) (*CompleteOutput, error) {
	if in.EntryID == "" {
		return nil, fmt.Errorf("entry id is required: %w", ErrInvalidInput)
	}

	current, err := s.store.GetEntry(ctx, in.EntryID)
	if err != nil {
		return nil, s.mapStoreError(ctx, "service.queueService.CompleteService", err)
	}

	now := s.now()

	var next *models.QueueEntry
	if in.NextDepartment != "" {
		if !in.NextDepartment.Valid() {
			return nil, fmt.Errorf("%q: %w", in.NextDepartment, ErrInvalidDepartment)
		}
		if in.NextDepartment == current.Department {
			return nil, fmt.Errorf("cannot route to the same department: %w", ErrInvalidInput)
		}

		priority := current.Priority
		if in.NextPriority != 0 {
			if !in.NextPriority.Valid() {
				return nil, fmt.Errorf("priority %d: %w", in.NextPriority, ErrInvalidInput)
			}
			priority = in.NextPriority
		}

		next, err = s.newEntry(ctx, CheckInInput{
			PatientID:   current.PatientID,
			PatientName: current.PatientName,
			Phone:       current.Phone,
			Department:  in.NextDepartment,
		}, priority, now)
		if err != nil {
			return nil, err
		}
		next.RoutedFrom = current.ID
	}

	completed, err := s.store.CompleteEntry(ctx, in.EntryID, now, next)
	if err != nil {
		return nil, s.mapStoreError(ctx, "service.queueService.CompleteService", err)
	}

	if s.prod != nil {
		event := kafka.ServiceCompletedEvent{
			EntryID:     completed.ID,
			QueueNumber: completed.QueueNumber,
			PatientID:   completed.PatientID,
			Department:  completed.Department,
			CompletedAt: *completed.CompletedAt,
		}
		if next != nil {
			event.RoutedTo = next.ID
			event.NextDepartment = next.Department
			event.NextQueueNumber = next.QueueNumber
		}
		if err := s.prod.PublishServiceCompleted(ctx, event); err != nil {
			s.l.Errorf(ctx, "service.queueService.CompleteService: publish: %v", err)
		}
	}

	if next != nil {
		s.l.Infof(ctx, "Service completed: %s (%s), routed to %s as %s",
			completed.QueueNumber, completed.Department, next.Department, next.QueueNumber)
	} else {
		s.l.Infof(ctx, "Service completed: %s (%s)", completed.QueueNumber, completed.Department)
	}

	return &CompleteOutput{Entry: completed, RoutedEntry: next}, nil
}

func (s *queueService) SkipPatient(ctx context.Context, entryID, reason string) (*models.QueueEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("entry id is required: %w", ErrInvalidInput)
	}

	entry, err := s.store.SkipEntry(ctx, entryID, reason, s.now())
	if err != nil {
		return nil, s.mapStoreError(ctx, "service.queueService.SkipPatient", err)
	}

	if s.prod != nil {
		if err := s.prod.PublishPatientSkipped(ctx, kafka.PatientSkippedEvent{
			EntryID:     entry.ID,
			QueueNumber: entry.QueueNumber,
			PatientID:   entry.PatientID,
			Department:  entry.Department,
			Reason:      reason,
			SkippedAt:   *entry.SkippedAt,
		}); err != nil {
			s.l.Errorf(ctx, "service.queueService.SkipPatient: publish: %v", err)
		}
	}

	s.l.Infof(ctx, "Patient skipped: %s (%s): %s", entry.QueueNumber, entry.Department, reason)

	return entry, nil
}

func (s *queueService) SetPriorityLevel(ctx context.Context, entryID string, p models.Priority) (*models.QueueEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("entry id is required: %w", ErrInvalidInput)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("priority %d: %w", p, ErrInvalidInput)
	}

	entry, err := s.store.SetPriority(ctx, entryID, p)
	if err != nil {
		return nil, s.mapStoreError(ctx, "service.queueService.SetPriorityLevel", err)
	}

	s.l.Infof(ctx, "Priority updated: %s (%s) -> %d", entry.QueueNumber, entry.Department, p)

	return entry, nil
}

func (s *queueService) RemoveFromQueue(ctx context.Context, entryID string) error {
	if entryID == "" {
		return fmt.Errorf("entry id is required: %w", ErrInvalidInput)
	}

	if err := s.store.RemoveEntry(ctx, entryID); err != nil {
		return s.mapStoreError(ctx, "service.queueService.RemoveFromQueue", err)
	}

	s.l.Infof(ctx, "Entry removed: %s", entryID)
	return nil
}

func (s *queueService) Queue(ctx context.Context, d models.Department) ([]*models.QueueEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%q: %w", d, ErrInvalidDepartment)
	}

	return s.store.ListByDepartment(ctx, d)
}

func (s *queueService) AllQueues(ctx context.Context) (map[models.Department][]*models.QueueEntry, error) {
	return s.store.ListAll(ctx)
}

// newEntry builds a waiting entry with a fresh id and the next department-day
// queue number.
func (s *queueService) newEntry(ctx context.Context, in CheckInInput, p models.Priority, now time.Time) (*models.QueueEntry, error) {
	day := util.DayKey(now, s.cfg.DayLocation)
	seq, err := s.store.NextQueueNumber(ctx, in.Department, day)
	if err != nil {
		s.l.Errorf(ctx, "service.queueService.newEntry: %v", err)
		return nil, fmt.Errorf("failed to allocate queue number: %w", err)
	}

	return &models.QueueEntry{
		ID:          uuid.NewString(),
		QueueNumber: models.FormatQueueNumber(in.Department, seq),
		PatientID:   in.PatientID,
		PatientName: in.PatientName,
		Phone:       in.Phone,
		Department:  in.Department,
		Priority:    p,
		Status:      models.EntryStatusWaiting,
		ArrivalTime: now,
	}, nil
}

func (s *queueService) mapStoreError(ctx context.Context, recv string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrEntryNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%v: %w", err, ErrInvalidTransition)
	default:
		s.l.Errorf(ctx, "%s: %v", recv, err)
		return err
	}
}
