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
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/students/*       Student management, payments, due dates
  /api/staff/*          Staff management and per-member payroll
  /api/positions/*      Pay policy management
  /api/attendance       Day-batch attendance
  /api/payroll/*        Whole-roster payroll runs
  /api/reports/*        Debtor reports
  /api/expenses/*       Expense lines
  /api/tests/*          Test results
  /api/scenarios/*      Demo scenarios

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
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.SaveStudent)
			r.Get("/{id}", h.GetStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Post("/{id}/archive", h.ArchiveStudent)
			r.Get("/{id}/due-date", h.GetDueDate)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		// Staff routes
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.SaveStaff)
			r.Get("/{id}", h.GetStaff)
			r.Delete("/{id}", h.DeleteStaff)
			r.Get("/{id}/payroll", h.GetStaffPayroll)
		})

		// Position routes
		r.Route("/positions", func(r chi.Router) {
			r.Get("/", h.ListPositions)
			r.Post("/", h.SavePosition)
			r.Delete("/{id}", h.DeletePosition)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Post("/", h.SubmitDay)
			r.Put("/", h.UpdateHours)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/run", h.RunPayroll)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/debtors", h.DebtorReport)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.SaveExpense)
			r.Delete("/{id}", h.DeleteExpense)
		})

		// Test result routes
		r.Route("/tests", func(r chi.Router) {
			r.Get("/", h.ListTests)
			r.Post("/", h.SaveTest)
			r.Delete("/{id}", h.DeleteTest)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
