package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/observability"
	"github.com/kharcha-erp/kharcha/internal/order"
	"github.com/kharcha-erp/kharcha/internal/payment"
	"github.com/kharcha-erp/kharcha/internal/report"
	"github.com/kharcha-erp/kharcha/internal/vendor"
	"github.com/kharcha-erp/kharcha/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	BudgetHandler  *budget.Handler
	IntentHandler  *intent.Handler
	VendorHandler  *vendor.Handler
	OrderHandler   *order.Handler
	PaymentHandler *payment.Handler
	ReportHandler  *report.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/budgets", params.BudgetHandler.MountRoutes)
	r.Route("/intents", params.IntentHandler.MountRoutes)
	r.Route("/vendors", params.VendorHandler.MountRoutes)
	r.Route("/orders", params.OrderHandler.MountRoutes)
	r.Route("/payments", params.PaymentHandler.MountRoutes)
	r.Route("/reports", params.ReportHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
