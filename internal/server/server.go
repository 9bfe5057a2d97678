/*
Package server owns the connection lifecycle of the chat service.

This file implements the TCP accept loop: it gates incoming connections
through the per-IP rate limiter, enables keep-alive, registers a session, and
spawns one dispatcher goroutine per connection. Closing the listener via
context cancellation is the only stop signal; shutdown then closes every live
session, which unblocks the dispatcher reads.
*/
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rasel/internal/app/directory"
	"rasel/internal/app/dispatch"
	"rasel/internal/app/session"
	"rasel/internal/configs"
	"rasel/internal/pkg/errs"
	"rasel/internal/pkg/limiter"
	"rasel/internal/pkg/logx"
	"rasel/internal/protocol"
)

const keepAlivePeriod = 3 * time.Minute

// Server accepts chat connections and owns the shared stores.
type Server struct {
	config   *configs.AppConfig
	store    *directory.Store
	registry *session.Registry
	limiter  *limiter.IPRateLimiter

	listener net.Listener
	wg       sync.WaitGroup

	startedAt time.Time

	logger zerolog.Logger
}

// New constructs a Server around explicit store instances. Stores are owned
// here and passed down by reference, never global.
func New(cfg *configs.AppConfig, store *directory.Store, registry *session.Registry) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		registry: registry,
		limiter:  limiter.NewIPRateLimiter(rate.Limit(cfg.ConnRate), cfg.ConnBurst),
		logger:   logx.Logger().With().Str("component", "server").Logger(),
	}
}

// Listen binds the chat listener. Separate from Serve so callers (and tests
// on port 0) can learn the bound address before accepting.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.startedAt = time.Now()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Chat server listening.")
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is canceled, then shuts down: the
// listener closes, every live session closes (unblocking its dispatcher), and
// Serve returns once all dispatcher goroutines have finished.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		if err := s.listener.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Listener close error during shutdown.")
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn().Err(err).Msg("Accept failed.")
			continue
		}

		s.handleConn(conn)
	}

	s.logger.Info().Msg("Accept loop stopped. Closing live sessions...")
	for _, sess := range s.registry.All() {
		sess.Close()
	}
	s.wg.Wait()

	s.logger.Info().Msg("Server shutdown complete.")
	return nil
}

// handleConn admits one accepted connection: rate-limit gate, keep-alive,
// session registration, dispatcher goroutine.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	if !s.limiter.Allow(remote) {
		s.logger.Warn().Str("remote_addr", remote).Msg("Connection rejected by rate limiter.")

		limitErr := errs.NewError(errs.ErrRateLimitExceeded)
		resp := protocol.Failure(limitErr.Message)
		if _, err := conn.Write([]byte(resp.Encode())); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to write rate-limit response.")
		}
		_ = conn.Close()
		return
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetKeepAlive(true); err == nil {
			_ = tcp.SetKeepAlivePeriod(keepAlivePeriod)
		}
	}

	sess := session.New(conn)
	s.registry.Register(sess)

	d := dispatch.New(sess, s.store, s.registry)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		d.Run()
	}()
}
