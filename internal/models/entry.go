package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type EntryStatus string

const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusServing   EntryStatus = "serving"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusSkipped   EntryStatus = "skipped"
)

type Priority int

const (
	PriorityEmergency Priority = 1
	PriorityUrgent    Priority = 2
	PriorityNormal    Priority = 3
	PriorityFollowUp  Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityEmergency && p <= PriorityFollowUp
}

// QueueEntry is one patient's position in one department's queue.
type QueueEntry struct {
	ID          string      `json:"id"`
	QueueNumber string      `json:"queue_number"`
	PatientID   string      `json:"patient_id"`
	PatientName string      `json:"patient_name"`
	Phone       string      `json:"phone,omitempty"`
	Department  Department  `json:"department"`
	Priority    Priority    `json:"priority"`
	Status      EntryStatus `json:"status"`
	ArrivalTime time.Time   `json:"arrival_time"`
	CalledAt    *time.Time  `json:"called_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	SkippedAt   *time.Time  `json:"skipped_at,omitempty"`
	ServedBy    string      `json:"served_by,omitempty"`
	SkipReason  string      `json:"skip_reason,omitempty"`
	RoutedFrom  string      `json:"routed_from,omitempty"`
	RoutedTo    string      `json:"routed_to,omitempty"`
}

func (e *QueueEntry) IsTerminal() bool {
	return e.Status == EntryStatusCompleted || e.Status == EntryStatusSkipped
}

func (e *QueueEntry) CanCall() bool {
	return e.Status == EntryStatusWaiting
}

func (e *QueueEntry) CanComplete() bool {
	return e.Status == EntryStatusServing
}

func (e *QueueEntry) CanSkip() bool {
	return e.Status == EntryStatusWaiting
}

func (e *QueueEntry) CanReprioritize() bool {
	return e.Status == EntryStatusWaiting
}

// WaitSeconds is the time the patient spent waiting before being called, or
// before completion when the entry was never explicitly called.
func (e *QueueEntry) WaitSeconds() (float64, bool) {
	switch {
	case e.CalledAt != nil:
		return e.CalledAt.Sub(e.ArrivalTime).Seconds(), true
	case e.CompletedAt != nil:
		return e.CompletedAt.Sub(e.ArrivalTime).Seconds(), true
	default:
		return 0, false
	}
}

// QueueScore orders waiting entries for selection: lower score is served first.
// Priority is the major key, arrival time the minor one. The arrival component
// stays well below one priority tier so tiers never interleave.
func (e *QueueEntry) QueueScore() float64 {
	return float64(e.Priority)*1e13 + float64(e.ArrivalTime.UnixMilli())
}

// Clone returns a deep copy so store internals never alias caller-held entries.
func (e *QueueEntry) Clone() *QueueEntry {
	c := *e
	if e.CalledAt != nil {
		t := *e.CalledAt
		c.CalledAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.SkippedAt != nil {
		t := *e.SkippedAt
		c.SkippedAt = &t
	}
	return &c
}

// FormatQueueNumber builds the human-facing ticket label from a department-day
// sequence value.
func FormatQueueNumber(d Department, seq int64) string {
	return fmt.Sprintf("%s-%03d", d.Code(), seq)
}

// QueueNumberSeq extracts the sequence value back out of a ticket label.
func QueueNumberSeq(queueNumber string) (int64, error) {
	i := strings.LastIndexByte(queueNumber, '-')
	if i < 0 {
		return 0, fmt.Errorf("malformed queue number: %q", queueNumber)
	}
	return strconv.ParseInt(queueNumber[i+1:], 10, 64)
}
