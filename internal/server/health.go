/*
Package server owns the connection lifecycle of the chat service.

This file provides the HTTP health/status endpoint served next to the chat
listener. It carries no protocol traffic; dashboards and probes read liveness
and a few directory counters from it.
*/
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"rasel/internal/pkg/logx"
)

// statusPayload is the JSON body of GET /status.
type statusPayload struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Sessions      int    `json:"sessions"`
	Online        int    `json:"online"`
	Users         int    `json:"users"`
	Groups        int    `json:"groups"`
}

// healthRouter builds the chi router for the health endpoint: request IDs,
// request logging, CORS for browser dashboards, and the two read-only routes.
func (s *Server) healthRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logx.RequestLogger())
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		payload := statusPayload{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
			Sessions:      s.registry.SessionCount(),
			Online:        s.registry.IdentityCount(),
			Users:         s.store.UserCount(),
			Groups:        s.store.GroupCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logx.Error(err, "Error encoding status response")
		}
	})

	return r
}

// ServeHealth runs the health HTTP server until ctx is canceled. A blank
// address disables the endpoint.
func (s *Server) ServeHealth(ctx context.Context) error {
	if s.config.HealthAddr == "" {
		return nil
	}

	httpServer := &http.Server{
		Addr:         s.config.HealthAddr,
		Handler:      s.healthRouter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.HealthAddr).Msg("Health endpoint listening.")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
