package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/types"
)

const storePingTimeout = 2 * time.Second

// handleRoot identifies the service.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.RootResponse{
		Message: "AI Interview Coach Backend API",
		Version: Version,
		Status:  "running",
	})
}

// handleHealth reports liveness and which backing services are usable.
// A configured store that does not answer a ping degrades the status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(s.startedAt).Seconds(),
		Environment: s.cfg.Environment,
		Version:     Version,
		Memory:      memoryUsage(),
		Services: types.HealthServices{
			Gemini: s.cfg.GeminiAPIKey != "",
		},
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), storePingTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("session store ping failed", zap.Error(err))
			resp.Status = "degraded"
		} else {
			resp.Services.Store = true
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func memoryUsage() types.HealthMemory {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return types.HealthMemory{
		Sys:        m.Sys,
		HeapTotal:  m.HeapSys,
		HeapUsed:   m.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
	}
}
