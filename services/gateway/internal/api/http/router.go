package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformhealth "github.com/riseup/payments/platform/health/http"
	platformobservability "github.com/riseup/payments/platform/observability"
)

// NewRouter builds the gateway HTTP router
func NewRouter(handler *Handler, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("gateway", logger))
	}

	router.Route("/payments", func(r chi.Router) {
		r.Post("/", handler.PostPayment)
		r.Get("/{id}", handler.GetPayment)
		r.Post("/{id}/confirm", handler.PostConfirm)
	})
	// the scannable code points here
	router.Get("/wallet/{id}", handler.GetPayment)

	router.Get("/health", platformhealth.Handler(nil))

	return router
}
