package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luismarin-dev/ordena-backend/api/controllers"
	"github.com/luismarin-dev/ordena-backend/api/middleware"
	"github.com/luismarin-dev/ordena-backend/internal/assignments"
	"github.com/luismarin-dev/ordena-backend/internal/priority"
	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           controllers.Pinger
	Assignments     assignments.Service
	Priorities      *priority.Repository
	MerchantID      string
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	gatherer := deps.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/fulfillment", func(r chi.Router) {
		r.Post("/assign", controllers.Assign(deps.Assignments, deps.Logger))
		r.Get("/assignments", controllers.ListAssignments(deps.Assignments, deps.Logger))
		r.Post("/assignments/{assignmentId}/status", controllers.AdvanceAssignmentStatus(deps.Assignments, deps.Logger))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/priority", controllers.FlagPriority(deps.Priorities, deps.MerchantID, deps.Logger))
		r.Get("/priority", controllers.ListPriority(deps.Priorities, deps.MerchantID, deps.Logger))
	})

	return r
}
