/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique id per request for tracing
  4. CORS:       cross-origin requests for the frontend

ROUTE GROUPS:
  Every group under /api except /login runs behind Authenticate, and each
  operation is gated on exactly the permission the role table grants:
  viewing, adding, editing and deleting contracts are all separate
  permissions, as are marking payments paid, exporting and managing
  users.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ShuVe1/site-agreement/access"
)

// Permission predicates for route gating.
var (
	canViewContracts = func(p access.PermissionSet) bool { return p.ViewContracts }
	canViewPayments  = func(p access.PermissionSet) bool { return p.ViewPayments }
	canViewReports   = func(p access.PermissionSet) bool { return p.ViewReports }
	canExportData    = func(p access.PermissionSet) bool { return p.ExportData }
	canMarkPaid      = func(p access.PermissionSet) bool { return p.MarkPaymentPaid }
	canAddContract   = func(p access.PermissionSet) bool { return p.AddContract }
	canEditContract  = func(p access.PermissionSet) bool { return p.EditContract }
	canDelContract   = func(p access.PermissionSet) bool { return p.DeleteContract }
	canManageUsers   = func(p access.PermissionSet) bool { return p.ManageUsers }
)

// NewRouter creates the router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/me", h.Me)

			r.Route("/contracts", func(r chi.Router) {
				r.With(h.Require(canViewContracts)).Get("/", h.ListContracts)
				r.With(h.Require(canAddContract)).Post("/", h.CreateContract)
				r.With(h.Require(canViewContracts)).Get("/{id}", h.GetContract)
				r.With(h.Require(canEditContract)).Put("/{id}", h.UpdateContract)
				r.With(h.Require(canDelContract)).Delete("/{id}", h.DeleteContract)
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(h.Require(canViewPayments)).Get("/", h.ListPayments)
				r.With(h.Require(canMarkPaid)).Post("/{id}/paid", h.MarkPaymentPaid)
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(h.Require(canViewReports)).Get("/stats", h.GetStats)
				r.With(h.Require(canExportData)).Get("/export", h.ExportContracts)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(h.Require(canManageUsers))
				r.Get("/", h.ListUsers)
				r.Put("/{id}", h.UpdateUser)
				r.Delete("/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
