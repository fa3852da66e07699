package controllers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

const envHeader = "X-Gala-Env"

// Pinger is satisfied by the db client and the redis client.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the data stores the request path depends on.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]Pinger{
			"db":    db,
			"redis": cache,
		}
		var pingErr error
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				pingErr = multierr.Append(pingErr, fmt.Errorf("%s: %w", name, err))
			}
		}
		if pingErr != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "dependency unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
