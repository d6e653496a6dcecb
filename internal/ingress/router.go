package ingress

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter builds the ingress HTTP router with request-id, logging,
// recovery, and timeout middleware.
func NewRouter(service *Service, logger *zap.Logger) http.Handler {
	handler := NewHandler(service, logger.With(zap.String("component", "ingress")))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
	})
	return r
}
