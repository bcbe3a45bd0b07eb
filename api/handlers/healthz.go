package handlers

import (
	"context"
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/responses"
	"github.com/ecofashion/ecofashion-backend/pkg/config"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

// Pinger is the dependency health surface the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports process liveness.
func Healthz(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "env", cfg.App.Env), "health.check")
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Ready reports whether the API's backing services answer.
func Ready(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(failures))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
