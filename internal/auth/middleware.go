package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"

	"github.com/JaewonYunDS/Filmind/internal/types"
)

// CustomClaims carries the auth service's user metadata from the token.
type CustomClaims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

type UserMetadata struct {
	Username string `json:"username"`
}

// Validate satisfies validator.CustomClaims; the claims need no extra checks.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// NewMiddleware builds the JWT middleware for HS256 tokens issued by the
// auth service. Credentials are optional: requests without a token pass
// through as guests and are routed to the local store downstream.
func NewMiddleware(secret, issuer, audience string) (*jwtmiddleware.JWTMiddleware, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(secret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}

	return jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
	), nil
}

// IdentityFromContext extracts the authenticated identity from validated
// claims, or returns nil for a guest request.
func IdentityFromContext(ctx context.Context) *types.Identity {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return nil
	}

	customClaims, ok := claims.CustomClaims.(*CustomClaims)
	if !ok {
		return nil
	}

	id, err := uuid.Parse(claims.RegisteredClaims.Subject)
	if err != nil {
		return nil
	}

	username := customClaims.UserMetadata.Username
	if username == "" {
		username = customClaims.Email
	}

	return &types.Identity{
		ID:          id,
		Email:       customClaims.Email,
		Username:    username,
		DisplayName: username,
	}
}

// RequireIdentity rejects guest requests on routes that need a signed-in
// user.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			http.Error(w, `{"error": "Sign in required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Protect wraps a handler chain with JWT validation.
func Protect(middleware *jwtmiddleware.JWTMiddleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return middleware.CheckJWT(next)
	}
}
