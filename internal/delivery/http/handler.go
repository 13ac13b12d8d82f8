package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/service"
	"github.com/hospiq/patient-queue/pkg/logger"
)

type QueueHandler struct {
	svc       service.QueueService
	l         logger.Logger
	validator *validator.Validate
}

func NewQueueHandler(svc service.QueueService, l logger.Logger) *QueueHandler {
	return &QueueHandler{
		svc:       svc,
		l:         l,
		validator: validator.New(),
	}
}

type checkInRequest struct {
	PatientID   string `json:"patient_id" validate:"required"`
	PatientName string `json:"patient_name" validate:"required"`
	Phone       string `json:"phone"`
	Department  string `json:"department" validate:"required"`
	Priority    int    `json:"priority" validate:"omitempty,gte=1,lte=4"`
}

type callNextRequest struct {
	StaffID string `json:"staff_id"`
}

type completeRequest struct {
	NextDepartment string `json:"next_department"`
	Priority       int    `json:"priority" validate:"omitempty,gte=1,lte=4"`
}

type skipRequest struct {
	Reason string `json:"reason"`
}

type priorityRequest struct {
	Priority int `json:"priority" validate:"required,gte=1,lte=4"`
}

// HealthCheck handles health check requests
func (h *QueueHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "patient-queue-service",
	})
}

// CheckIn handles patient check-in requests
func (h *QueueHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	entry, err := h.svc.CheckIn(r.Context(), service.CheckInInput{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Phone:       req.Phone,
		Department:  models.Department(req.Department),
		Priority:    models.Priority(req.Priority),
	})
	if err != nil {
		h.respondServiceError(w, r, "Failed to check in patient", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, entry)
}

// GetQueue returns one department's queue, or all queues when the department
// query parameter is omitted.
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	dept := r.URL.Query().Get("department")
	if dept == "" {
		h.GetAllQueues(w, r)
		return
	}

	entries, err := h.svc.Queue(r.Context(), models.Department(dept))
	if err != nil {
		h.respondServiceError(w, r, "Failed to get queue", err)
		return
	}

	h.respondJSON(w, http.StatusOK, entries)
}

// GetAllQueues returns every department's queue keyed by department.
func (h *QueueHandler) GetAllQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := h.svc.AllQueues(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "Failed to get queues", err)
		return
	}

	h.respondJSON(w, http.StatusOK, queues)
}

// CallNext claims the next waiting patient for a department.
func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	dept := chi.URLParam(r, "department")

	var req callNextRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	// Authenticated staff identity wins over the request body.
	staffID := StaffIDFromContext(r.Context())
	if staffID == "" {
		staffID = req.StaffID
	}

	entry, err := h.svc.CallNext(r.Context(), models.Department(dept), staffID)
	if err != nil {
		if errors.Is(err, service.ErrNoPatientsWaiting) {
			// Empty-result signal, not a failure.
			h.respondJSON(w, http.StatusOK, map[string]interface{}{
				"entry":   nil,
				"message": "No patients waiting",
			})
			return
		}
		h.respondServiceError(w, r, "Failed to call next patient", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// CompleteService completes a serving entry, optionally routing the patient to
// the next department.
func (h *QueueHandler) CompleteService(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	var req completeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if err := h.validator.Struct(req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Validation failed", err)
			return
		}
	}

	out, err := h.svc.CompleteService(r.Context(), service.CompleteInput{
		EntryID:        entryID,
		NextDepartment: models.Department(req.NextDepartment),
		NextPriority:   models.Priority(req.Priority),
	})
	if err != nil {
		h.respondServiceError(w, r, "Failed to complete service", err)
		return
	}

	h.respondJSON(w, http.StatusOK, out)
}

// SkipPatient skips a waiting entry.
func (h *QueueHandler) SkipPatient(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	var req skipRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	entry, err := h.svc.SkipPatient(r.Context(), entryID, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, "Failed to skip patient", err)
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

// SetPriority re-prioritizes a waiting entry.
func (h *QueueHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	entry, err := h.svc.SetPriorityLevel(r.Context(), entryID, models.Priority(req.Priority))
	if err != nil {
		h.respondServiceError(w, r, "Failed to set priority", err)
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

// RemoveEntry hard-deletes an entry (administrative correction).
func (h *QueueHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryId")

	if err := h.svc.RemoveFromQueue(r.Context(), entryID); err != nil {
		h.respondServiceError(w, r, "Failed to remove entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAnalytics returns per-department analytics snapshots.
func (h *QueueHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.QueueAnalytics(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "Failed to get analytics", err)
		return
	}

	h.respondJSON(w, http.StatusOK, snapshots)
}

// GetStats returns the global queue roll-up.
func (h *QueueHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.QueueStats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "Failed to get stats", err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// Helper functions

func (h *QueueHandler) respondServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidDepartment):
		h.respondError(w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrEntryNotFound):
		h.respondError(w, http.StatusNotFound, "Queue entry not found", err)
	case errors.Is(err, service.ErrInvalidTransition):
		// Accurate feedback matters here: "already completed by someone else".
		h.respondError(w, http.StatusConflict, err.Error(), err)
	default:
		h.l.Errorf(r.Context(), "%s: %v", message, err)
		h.respondError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *QueueHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.l.Errorf(context.Background(), "Failed to encode JSON response: %v", err)
	}
}

func (h *QueueHandler) respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		h.l.Debugf(context.Background(), "Error response %q: %v", message, err)
	}

	h.respondJSON(w, statusCode, map[string]interface{}{
		"error": message,
		"code":  statusCode,
	})
}
