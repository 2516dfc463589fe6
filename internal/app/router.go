package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/granary-erp/granary-erp/internal/ledger"
	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/production"
	"github.com/granary-erp/granary-erp/internal/ricestock"
	"github.com/granary-erp/granary-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MovementHandler   *movement.Handler
	LedgerHandler     *ledger.Handler
	ProductionHandler *production.Handler
	RiceStockHandler  *ricestock.Handler
	MasterDataHandler *masterdata.Handler
	JobsHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with Granary defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/movements", params.MovementHandler.MountRoutes)
	r.Route("/ledger", params.LedgerHandler.MountRoutes)
	params.ProductionHandler.MountRoutes(r)
	params.RiceStockHandler.MountRoutes(r)
	if params.MasterDataHandler != nil {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}
