package middleware

import (
	"fmt"
	"net/http"

	"github.com/ecofashion/ecofashion-backend/api/responses"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

// Recoverer converts handler panics into logged 500 responses.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				ctx := r.Context()
				err := fmt.Errorf("panic: %v", rec)
				if logg != nil {
					ctx = logg.WithField(ctx, "panic", rec)
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
