package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/hospiq/patient-queue/config"
	"github.com/hospiq/patient-queue/pkg/logger"
)

// NewRouter wires the queue API. Read routes stay open for the polling
// dashboards; write routes go through staff-token auth when a secret is
// configured.
func NewRouter(h *QueueHandler, jwtCfg config.JWTConfig, l logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue", h.GetQueue)
		r.Get("/queues", h.GetAllQueues)
		r.Get("/queue/analytics", h.GetAnalytics)
		r.Get("/queue/stats", h.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(StaffAuth(jwtCfg.Secret, l))

			r.Post("/queue/check-in", h.CheckIn)
			r.Post("/queue/{department}/call-next", h.CallNext)
			r.Post("/queue/entries/{entryId}/complete", h.CompleteService)
			r.Post("/queue/entries/{entryId}/skip", h.SkipPatient)
			r.Patch("/queue/entries/{entryId}/priority", h.SetPriority)
			r.Delete("/queue/entries/{entryId}", h.RemoveEntry)
		})
	})

	return r
}
