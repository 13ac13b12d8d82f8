package service

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDepartment = errors.New("unknown department")
	ErrEntryNotFound     = errors.New("queue entry not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoPatientsWaiting is an empty-result signal, not a failure: the
	// waiting set is empty or every serving slot is busy. Callers must
	// distinguish it from errors.
	ErrNoPatientsWaiting = errors.New("no patients waiting")
)
