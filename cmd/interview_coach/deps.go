package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/sessions"
)

const storeConnectTimeout = 10 * time.Second

// llmConfig maps the server configuration onto the model client settings.
func llmConfig(cfg *config.Config) *llm.Config {
	llmCfg := llm.DefaultConfig()
	if cfg.GeminiModel != "" {
		llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.GeminiModel)
	}
	if cfg.LLMTimeout > 0 {
		llmCfg = llmCfg.WithTimeout(cfg.LLMTimeout)
	}
	return llmCfg
}

// openStore connects the session store when DATABASE_URL is set.
// It returns a nil store when persistence is disabled.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sessions.Store, error) {
	if !cfg.PersistenceEnabled() {
		logger.Warn("DATABASE_URL not set, session persistence disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	store, err := sessions.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare session store: %w", err)
	}
	return store, nil
}

// buildVerifier creates the JWT verifier. Token settings are mandatory when
// a store is configured, since the store is only reachable through the gate.
func buildVerifier(requireTokens bool, logger *zap.Logger) (middleware.Verifier, error) {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		if requireTokens {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
		logger.Warn("token verification not configured, protected endpoints will reject all requests", zap.Error(err))
		return nil, nil
	}

	verifier, err := server.NewJWTVerifier(jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}
	return verifier, nil
}
