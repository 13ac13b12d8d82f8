package service

import (
	"context"
	"fmt"

	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/pkg/util"
)

// Analytics are recomputed from the current entry set on every call; nothing
// here writes to the store.

func (s *queueService) DepartmentAnalytics(ctx context.Context, d models.Department) (*models.QueueAnalyticsSnapshot, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%q: %w", d, ErrInvalidDepartment)
	}

	entries, err := s.store.ListByDepartment(ctx, d)
	if err != nil {
		s.l.Errorf(ctx, "service.queueService.DepartmentAnalytics: %v", err)
		return nil, err
	}

	return s.snapshot(d, entries), nil
}

func (s *queueService) QueueAnalytics(ctx context.Context) ([]*models.QueueAnalyticsSnapshot, error) {
	byDept, err := s.store.ListAll(ctx)
	if err != nil {
		s.l.Errorf(ctx, "service.queueService.QueueAnalytics: %v", err)
		return nil, err
	}

	snapshots := make([]*models.QueueAnalyticsSnapshot, 0, len(models.Departments()))
	for _, d := range models.Departments() {
		snapshots = append(snapshots, s.snapshot(d, byDept[d]))
	}

	return snapshots, nil
}

func (s *queueService) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	byDept, err := s.store.ListAll(ctx)
	if err != nil {
		s.l.Errorf(ctx, "service.queueService.QueueStats: %v", err)
		return nil, err
	}

	now := s.now()
	dayStart := util.StartOfDay(now, s.cfg.DayLocation)

	stats := &models.QueueStats{}
	var waitSum float64
	var waitCount int

	for _, entries := range byDept {
		for _, e := range entries {
			stats.Total++
			switch e.Status {
			case models.EntryStatusWaiting:
				stats.Waiting++
			case models.EntryStatusServing:
				stats.Serving++
			case models.EntryStatusCompleted:
				stats.Completed++
				if e.CompletedAt != nil && !e.CompletedAt.Before(dayStart) {
					if w, ok := e.WaitSeconds(); ok {
						waitSum += w
						waitCount++
					}
				}
			case models.EntryStatusSkipped:
				stats.Skipped++
			}
		}
	}

	if waitCount > 0 {
		stats.AvgWaitMinutes = waitSum / float64(waitCount) / 60
	}

	return stats, nil
}

// snapshot derives the per-department analytics from a listing. Historical
// wait figures only cover entries completed today; live waits are reported
// separately so they never skew the averages.
func (s *queueService) snapshot(d models.Department, entries []*models.QueueEntry) *models.QueueAnalyticsSnapshot {
	now := s.now()
	dayStart := util.StartOfDay(now, s.cfg.DayLocation)

	snap := &models.QueueAnalyticsSnapshot{Department: d}

	var waitSum float64
	var waitCount int

	for _, e := range entries {
		if !e.ArrivalTime.Before(dayStart) {
			snap.TotalPatientsToday++
		}

		switch e.Status {
		case models.EntryStatusWaiting:
			snap.WaitingCount++
			if age := now.Sub(e.ArrivalTime).Seconds(); age > snap.CurrentWaitSeconds {
				snap.CurrentWaitSeconds = age
			}
		case models.EntryStatusServing:
			snap.ServingCount++
		case models.EntryStatusCompleted:
			if e.CompletedAt == nil || e.CompletedAt.Before(dayStart) {
				continue
			}
			if w, ok := e.WaitSeconds(); ok {
				waitSum += w
				waitCount++
				if w > snap.MaxWaitSeconds {
					snap.MaxWaitSeconds = w
				}
			}
		}
	}

	if waitCount > 0 {
		snap.AvgWaitSeconds = waitSum / float64(waitCount)
	}

	snap.CongestionLevel = s.congestion(snap.WaitingCount)
	return snap
}

func (s *queueService) congestion(waiting int) models.CongestionLevel {
	switch {
	case waiting <= s.cfg.CongestionLowMax:
		return models.CongestionLow
	case waiting <= s.cfg.CongestionModerateMax:
		return models.CongestionModerate
	default:
		return models.CongestionHigh
	}
}
