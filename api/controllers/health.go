package controllers

import (
	"context"
	"net/http"

	"github.com/luismarin-dev/ordena-backend/api/responses"
	"github.com/luismarin-dev/ordena-backend/pkg/config"
	pkgerrors "github.com/luismarin-dev/ordena-backend/pkg/errors"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

// Pinger is anything with a health probe (db client, redis client).
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ordena-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the hard dependencies. Nil pingers are skipped so the
// route works in partial wiring (tests, migrate-only deployments).
func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ordena-Env", cfg.App.Env)

		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" is unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
