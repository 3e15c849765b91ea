// Package config provides JWT verification configuration.
package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig holds the settings for verifying externally issued tokens.
// Exactly one of Secret (HS256) or PublicKeyPEM (RS256) is normally set.
type JWTConfig struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET or JWT_PUBLIC_KEY_PEM (one is required), JWT_ISSUER,
// JWT_AUDIENCE and JWT_LEEWAY (default: 30s).
func NewJWTConfig() (*JWTConfig, error) {
	leeway, err := envDuration("JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, err
	}

	config := &JWTConfig{
		Secret:       os.Getenv("JWT_SECRET"),
		PublicKeyPEM: os.Getenv("JWT_PUBLIC_KEY_PEM"),
		Issuer:       os.Getenv("JWT_ISSUER"),
		Audience:     os.Getenv("JWT_AUDIENCE"),
		Leeway:       leeway,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" && c.PublicKeyPEM == "" {
		return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY_PEM is required but neither is set")
	}
	if c.Leeway < 0 {
		return fmt.Errorf("JWT_LEEWAY must not be negative, got: %s", c.Leeway)
	}
	return nil
}
