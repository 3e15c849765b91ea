// Package server provides the HTTP API of the interview coach.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/sessions"
)

// Version is reported by / and /api/health.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// Analyzer produces normalized feedback for one answer.
type Analyzer interface {
	Analyze(ctx context.Context, question, answer string) (feedback.FeedbackResult, error)
}

// Deps are the collaborators of a Server. Store and Verifier may be nil:
// without a store the session endpoints answer 500, without a verifier
// every protected request is rejected as unauthorized.
type Deps struct {
	Analyzer Analyzer
	Store    sessions.Store
	Verifier middleware.Verifier
	Logger   *zap.Logger
	Metrics  *Metrics
	Limiter  *ratelimit.Limiter
}

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	analyzer   Analyzer
	store      sessions.Store
	verifier   middleware.Verifier
	logger     *zap.Logger
	metrics    *Metrics
	limiter    *ratelimit.Limiter
	startedAt  time.Time
	handler    http.Handler
	httpServer *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}

	s := &Server{
		cfg:       cfg,
		analyzer:  deps.Analyzer,
		store:     deps.Store,
		verifier:  deps.Verifier,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		limiter:   deps.Limiter,
		startedAt: time.Now(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	if s.verifier == nil {
		s.verifier = middleware.VerifierFunc(func(context.Context, string) (*middleware.Claims, error) {
			return nil, errors.New("no token verifier configured")
		})
	}

	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Must outlast the model call.
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	auth := middleware.AuthMiddleware(s.verifier,
		middleware.WithLogger(s.logger),
		middleware.WithFailureHook(func(err error) {
			reason := "invalid"
			if errors.Is(err, middleware.ErrMissingToken) {
				reason = "missing"
			}
			s.metrics.observeAuthFailure(reason)
		}),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze-response", s.handleAnalyze)
	mux.Handle("POST /api/save-result", auth(http.HandlerFunc(s.handleSaveResult)))
	mux.Handle("GET /api/history", auth(http.HandlerFunc(s.handleHistory)))
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = s.withBodyLimit(h)
	h = s.withRateLimit(h)
	h = s.withCORS(h)
	h = s.withSecurityHeaders(h)
	h = s.withRecovery(h)
	h = s.withObservability(h)
	return h
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			zap.String("addr", ln.Addr().String()),
			zap.String("environment", s.cfg.Environment),
			zap.Bool("gemini_configured", s.cfg.GeminiAPIKey != ""),
			zap.Bool("store_configured", s.store != nil))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	s.logger.Info("server stopped")
	return err
}

// Close releases the limiter and the session store.
func (s *Server) Close() {
	s.limiter.Stop()
	if s.store != nil {
		s.store.Close()
	}
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.errorResponse(w, http.StatusNotFound, "Endpoint not found")
}
