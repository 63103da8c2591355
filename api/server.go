/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the routes. This is
  the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in access logs
  2. Access log: zap line per request (method, path, status, bytes, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser frontend

ROUTE GROUPS:
  /healthz                 Liveness
  /api/books/{book}/*      Book-scoped accounts, postings, documents, reports
  /api/documents/{id}/*    Document lifecycle and settlement
  /api/transactions/{id}   Transaction lookup
  /api/employees/{id}/*    Expense claims and reimbursements
  /api/tax/calculate       Stateless tax calculation
  /api/scenarios/*         Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	// CORSOrigins defaults to every origin when empty.
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/books/{book}", func(r chi.Router) {
			// Chart of accounts
			r.Get("/accounts", h.GetAccountTree)
			r.Post("/accounts/seed", h.SeedAccounts)
			r.Get("/accounts/{account}/register", h.GetRegister)

			// Postings
			r.Post("/transactions", h.PostTransaction)
			r.Post("/transactions/transfer", h.PostTransfer)
			r.Post("/tax", h.PostManualTax)
			r.Post("/statements", h.ImportStatement)

			// Owners and documents
			r.Get("/owners", h.ListOwners)
			r.Post("/owners", h.CreateOwner)
			r.Get("/documents", h.ListDocuments)
			r.Post("/documents", h.CreateDocument)

			// Reconciliation
			r.Get("/reconciliation", h.ReconciliationCandidates)
			r.Post("/reconciliation/mark", h.MarkReconciled)

			// Reports
			r.Route("/reports", func(r chi.Router) {
				r.Get("/trial-balance", h.TrialBalance)
				r.Get("/profit-and-loss", h.ProfitAndLoss)
				r.Get("/balance-sheet", h.BalanceSheet)
				r.Get("/cash-flow", h.CashFlow)
				r.Get("/aging", h.Aging)
				r.Get("/dashboard", h.Dashboard)
			})
		})

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Post("/post", h.PostDocument)
			r.Post("/payments", h.AddPayment)
			r.Get("/settlement", h.GetSettlement)
			r.Post("/settlement/recompute", h.RecomputeSettlement)
		})

		r.Get("/transactions/{id}", h.GetTransaction)

		r.Route("/employees/{id}", func(r chi.Router) {
			r.Post("/expenses", h.PostExpenseClaim)
			r.Post("/payments", h.PayEmployee)
			r.Get("/balance", h.EmployeeBalance)
		})

		r.Post("/tax/calculate", h.CalculateTax)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// accessLog writes one zap line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
