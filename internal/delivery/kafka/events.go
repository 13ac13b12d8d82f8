package kafka

import (
	"time"

	"github.com/hospiq/patient-queue/internal/models"
)

// Events published BY the patient queue service

type PatientCheckedInEvent struct {
	EntryID     string            `json:"entry_id"`
	QueueNumber string            `json:"queue_number"`
	PatientID   string            `json:"patient_id"`
	Department  models.Department `json:"department"`
	Priority    models.Priority   `json:"priority"`
	ArrivalTime time.Time         `json:"arrival_time"`
	Timestamp   time.Time         `json:"timestamp"`
}

type PatientCalledEvent struct {
	EntryID     string            `json:"entry_id"`
	QueueNumber string            `json:"queue_number"`
	PatientID   string            `json:"patient_id"`
	Department  models.Department `json:"department"`
	ServedBy    string            `json:"served_by"`
	CalledAt    time.Time         `json:"called_at"`
	Timestamp   time.Time         `json:"timestamp"`
}

type ServiceCompletedEvent struct {
	EntryID     string            `json:"entry_id"`
	QueueNumber string            `json:"queue_number"`
	PatientID   string            `json:"patient_id"`
	Department  models.Department `json:"department"`
	CompletedAt time.Time         `json:"completed_at"`

	// Routing linkage, set when service completion handed the patient to the
	// next department.
	RoutedTo         string            `json:"routed_to,omitempty"`
	NextDepartment   models.Department `json:"next_department,omitempty"`
	NextQueueNumber  string            `json:"next_queue_number,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type PatientSkippedEvent struct {
	EntryID     string            `json:"entry_id"`
	QueueNumber string            `json:"queue_number"`
	PatientID   string            `json:"patient_id"`
	Department  models.Department `json:"department"`
	Reason      string            `json:"reason,omitempty"`
	SkippedAt   time.Time         `json:"skipped_at"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Events consumed BY the patient queue service (from the appointment service)

type AppointmentCheckedInEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	Phone         string    `json:"phone,omitempty"`
	Department    string    `json:"department"`
	Priority      int       `json:"priority,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
