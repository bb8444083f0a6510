package middleware

import (
	"net/http"
	"strings"

	"cnlgraph/infrastructure/config"
	"cnlgraph/pkg/auth"
	"cnlgraph/pkg/common"

	"go.uber.org/zap"
)

// Authenticate validates bearer tokens and attaches the caller to the
// request context. In development with no JWT secret configured, every
// request runs as a fixed local user so the compiler can be exercised
// without an identity provider.
func Authenticate(cfg *config.Config, logger *zap.Logger) func(next http.Handler) http.Handler {
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		logger.Warn("JWT_SECRET not set, running with development identity")
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := auth.WithUser(r.Context(), auth.UserContext{UserID: "local-dev"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		logger.Error("failed to build JWT validator", zap.Error(err))
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				common.RespondError(w, http.StatusUnauthorized, "AUTH_UNAVAILABLE", "authentication is not configured")
			})
		}
	}

	limiter := auth.NewUserRateLimiter(cfg.CompilesPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			user, err := validator.Validate(token)
			if err != nil {
				logger.Warn("rejected token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			if allowed, _ := limiter.Allow(r.Context(), user.UserID); !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many submissions")
				return
			}

			ctx := auth.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}
