package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

const envHeader = "X-Garage-Env"

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A failing dependency answers 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		for name, p := range map[string]Pinger{"database": dbPinger, "redis": redisPinger} {
			if p == nil {
				checks[name] = "unconfigured"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(checks)
			}
		}
		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
