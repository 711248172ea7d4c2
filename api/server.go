/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clients/*       Session start and client summaries
  /api/arrangements    Trip offerings
  /api/reservations/*  Booking, payments, cancellation
  /api/admin/*         Agency-side operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients/{username}", func(r chi.Router) {
			r.Post("/session", h.StartSession)
			r.Get("/summary", h.GetClientSummary)
		})

		// Arrangement routes
		r.Get("/arrangements", h.ListArrangements)

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Route("/{client}/{arrangement}", func(r chi.Router) {
				r.Post("/payments", h.SubmitPayment)
				r.Post("/cancel", h.CancelReservation)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/arrangements", h.AddArrangement)
			r.Delete("/arrangements/{id}", h.CancelArrangement)
			r.Get("/outstanding", h.GetOutstanding)
		})
	})

	return r
}
