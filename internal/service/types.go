package service

import (
	"github.com/hospiq/patient-queue/internal/models"
)

type CheckInInput struct {
	PatientID   string            `json:"patient_id" validate:"required"`
	PatientName string            `json:"patient_name" validate:"required"`
	Phone       string            `json:"phone"`
	Department  models.Department `json:"department" validate:"required"`
	// Priority defaults to Normal (3) when zero.
	Priority models.Priority `json:"priority" validate:"omitempty,gte=1,lte=4"`
}

type CompleteInput struct {
	EntryID string
	// NextDepartment, when set, routes the patient into a new waiting entry
	// there as part of the same logical step.
	NextDepartment models.Department
	// NextPriority overrides the inherited priority for the routed entry.
	NextPriority models.Priority
}

type CompleteOutput struct {
	Entry *models.QueueEntry `json:"entry"`
	// RoutedEntry is the new waiting entry in the next department, nil when no
	// routing was requested.
	RoutedEntry *models.QueueEntry `json:"routed_entry,omitempty"`
}
