package auth

import (
	"context"
	"fmt"

	pkgerrors "cnlgraph/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// UserContext is the authenticated caller extracted from a token.
type UserContext struct {
	UserID string
	Email  string
}

type contextKey string

const userContextKey contextKey = "cnlgraph.user"

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user.
func GetUserFromContext(ctx context.Context) (UserContext, error) {
	user, ok := ctx.Value(userContextKey).(UserContext)
	if !ok {
		return UserContext{}, pkgerrors.NewValidationError("no authenticated user in context")
	}
	return user, nil
}

// JWTConfig configures token validation.
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// JWTValidator validates HS256 bearer tokens.
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a validator.
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key required")
	}
	return &JWTValidator{config: config}, nil
}

// Validate parses and verifies a token, returning the caller identity.
func (v *JWTValidator) Validate(tokenString string) (UserContext, error) {
	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(v.config.SecretKey), nil
	}, opts...)
	if err != nil {
		return UserContext{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return UserContext{}, fmt.Errorf("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return UserContext{}, fmt.Errorf("token has no subject")
	}

	user := UserContext{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	return user, nil
}
