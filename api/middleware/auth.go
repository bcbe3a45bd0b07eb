package middleware

import (
	"net/http"
	"strings"

	"github.com/ecofashion/ecofashion-backend/api/responses"
	pkgauth "github.com/ecofashion/ecofashion-backend/pkg/auth"
	"github.com/ecofashion/ecofashion-backend/pkg/config"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's user id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user id"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if claims.Role != "" {
				ctx = WithRole(ctx, claims.Role)
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
				if claims.Role != "" {
					ctx = logg.WithField(ctx, "actor_role", claims.Role)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
