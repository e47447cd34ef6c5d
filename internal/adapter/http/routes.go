package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/birdwork/roost/internal/adapter/ws"
)

// MountRoutes registers all admin API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/healthz", h.Health)
	r.Get("/ws", hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/runs", h.TriggerRun)
		r.Get("/runs/latest", h.LatestReport)

		r.Get("/accounts", h.ListAccounts)
		r.Post("/accounts/{id}/run", h.TriggerAccountRun)
		r.Get("/accounts/{id}/metrics", h.AccountMetrics)
	})
}
