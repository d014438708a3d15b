package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	platformhealth "github.com/riseup/payments/platform/health/http"
	platformobservability "github.com/riseup/payments/platform/observability"

	"github.com/riseup/payments/services/checkout/internal/api/http/middleware"
)

// NewRouter builds the checkout HTTP router.
// readiness backs GET /health; allowedOrigins configures CORS so a browser page can poll.
func NewRouter(handler *Handler, readiness platformhealth.ReadinessFunc, allowedOrigins []string, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "traceparent"},
	}).Handler)

	// trace context + span per request, logger with trace_id in the context
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("checkout", logger))
		router.Use(middleware.AccessLog(logger))
	}

	router.Route("/charge", func(r chi.Router) {
		r.Post("/", handler.PostCharge)
		r.Get("/{id}", handler.GetCharge)
		r.Post("/{id}/cancel", handler.PostCancel)
	})
	router.Post("/confirm", handler.PostConfirm)

	router.Get("/health", platformhealth.Handler(readiness))

	return router
}
