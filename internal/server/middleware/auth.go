// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Errors returned by Authenticate. Every verification failure is reported as
// ErrInvalidToken regardless of its cause.
var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

const bearerPrefix = "Bearer "

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// claimsKey is the context key for storing the verified claims.
const claimsKey ContextKey = "claims"

// Claims are the verified identity attributes of the caller.
type Claims struct {
	UserID  string
	Email   string
	Issuer  string
	Expires time.Time
	Raw     map[string]any
}

// Verifier checks an externally issued token.
// Implementations must not retry; one call is made per request.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (*Claims, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

// ExtractBearerToken returns the token from an Authorization header of the
// exact form "Bearer <token>". The prefix is case-sensitive and the token may
// not contain whitespace.
func ExtractBearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate extracts the bearer token from header and verifies it once.
func Authenticate(ctx context.Context, header string, v Verifier) (*Claims, error) {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := v.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims == nil || claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return claims, nil
}

// AuthOption configures AuthMiddleware.
type AuthOption func(*authConfig)

type authConfig struct {
	logger    *zap.Logger
	onFailure func(error)
}

// WithLogger logs rejected requests at Warn.
func WithLogger(logger *zap.Logger) AuthOption {
	return func(c *authConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFailureHook calls fn with the error of every rejected request.
func WithFailureHook(fn func(error)) AuthOption {
	return func(c *authConfig) { c.onFailure = fn }
}

// AuthMiddleware creates middleware that verifies bearer tokens and adds the
// verified claims to the request context. Rejected requests never reach next.
func AuthMiddleware(v Verifier, opts ...AuthOption) func(http.Handler) http.Handler {
	cfg := authConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := Authenticate(r.Context(), r.Header.Get("Authorization"), v)
			if err != nil {
				cfg.logger.Warn("request rejected by auth gate",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				if cfg.onFailure != nil {
					cfg.onFailure(err)
				}
				writeUnauthorized(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	message := "Unauthorized: invalid token"
	if errors.Is(err, ErrMissingToken) {
		message = "Unauthorized: missing token"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	stored := *claims
	stored.Raw = maps.Clone(claims.Raw)
	return context.WithValue(ctx, claimsKey, &stored)
}

// ClaimsFromContext returns a copy of the verified claims stored in ctx.
// Mutating the copy does not affect what later handlers see.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	stored, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return Claims{}, false
	}
	claims := *stored
	claims.Raw = maps.Clone(stored.Raw)
	return claims, true
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (string, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("user ID not found in request context")
	}
	return claims.UserID, nil
}
