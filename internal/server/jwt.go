package server

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/server/middleware"
)

// JWTVerifier verifies tokens issued by an external identity provider.
// It implements middleware.Verifier and never issues tokens itself.
type JWTVerifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

// NewJWTVerifier creates a verifier from cfg. HS256 is accepted when a secret
// is configured, RS256 when a public key is configured.
func NewJWTVerifier(cfg *config.JWTConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{}
	var methods []string

	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.PublicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
		}
		v.publicKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no JWT verification key configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)

	return v, nil
}

// Verify validates the token signature, expiry, issuer and audience and
// returns its claims. The subject comes from "sub", falling back to "user_id".
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*middleware.Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	mapClaims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, mapClaims, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims := &middleware.Claims{Raw: map[string]any(mapClaims)}
	claims.UserID, _ = mapClaims.GetSubject()
	if claims.UserID == "" {
		claims.UserID, _ = mapClaims["user_id"].(string)
	}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Issuer, _ = mapClaims.GetIssuer()
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expires = exp.Time
	}

	return claims, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret == nil {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.publicKey == nil {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}
