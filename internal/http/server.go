package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vfms/internal/cache"
	"vfms/internal/ledger"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/services"
)

const summaryCacheKey = "global"

// summaryTTL bounds how stale the summary is after writes made by another
// process, which never reach invalidateSummary.
const summaryTTL = 5 * time.Second

// Services are the collaborators the JSON API delegates to.
type Services struct {
	Ledger     *services.LedgerService
	Recurring  *services.RecurringProcessor
	Compliance *services.ComplianceService
	Expenses   *services.ExpenseService
	Metrics    *metrics.Metrics
}

type Server struct {
	http.Server
	svc    Services
	logger *applog.Logger

	// The global summary reads every household and payment, so it is kept
	// for a short while and dropped on every write.
	summaryCache *cache.LRU[[]ledger.HouseholdSummary]
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		svc:          svc,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		summaryCache: cache.NewLRU[[]ledger.HouseholdSummary](1, summaryTTL),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(20 * time.Second))
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", s.svc.Metrics.Handler())

	r.Route("/households", func(r chi.Router) {
		r.Get("/", s.handleListHouseholds)
		r.Get("/{id}/dues", s.handleHouseholdDues)
		r.Get("/{id}/payments", s.handleHouseholdPayments)
		r.Post("/{id}/payments", s.handleRecordPayment)
	})

	r.Route("/funds", func(r chi.Router) {
		r.Get("/", s.handleListFunds)
		r.Post("/repair-links", s.handleRepairLinks)
		r.Post("/{id}/expand", s.handleExpandTemplate)
		r.Post("/{id}/generate-yearly", s.handleGenerateYearly)
		r.Get("/{id}/balance", s.handleFundBalance)
		r.Get("/{id}/expenses", s.handleFundExpenses)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/summary", s.handleGlobalSummary)
		r.Get("/funds/{id}", s.handleFundReport)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", s.handleRecordExpense)
		r.Patch("/{id}/status", s.handleExpenseStatus)
		r.Patch("/{id}/visibility", s.handleExpenseVisibility)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidateSummary drops the cached global summary after a write.
func (s *Server) invalidateSummary() {
	s.summaryCache.Delete(summaryCacheKey)
}
