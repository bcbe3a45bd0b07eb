package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ecofashion/ecofashion-backend/api/responses"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

const (
	rateLimitWindow   = time.Minute
	rateLimitPerActor = 120
)

// Limiter is the fixed-window counter surface pkg/redis provides.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-user fixed window limit backed by Redis. A Redis
// failure lets the request through; availability wins over throttling.
func RateLimit(limiter Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			scope := fmt.Sprintf("user:%d", UserIDFromContext(r.Context()))
			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, rateLimitPerActor, rateLimitWindow)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
