/*
Package session tracks live connections and the mapping from authenticated
identities to their active connection.

This file defines the Session struct, the server-side state bound to one live
socket. A Session exists from accept to disconnect and is distinct from the
durable User identity, which it holds only after authentication.
*/
package session

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rasel/internal/app/directory"
	"rasel/internal/pkg/logx"
	"rasel/internal/pkg/randx"
	"rasel/internal/protocol"
)

// writeWait is the per-response write deadline. A dead peer fails its own
// write instead of blocking delivery to other sessions.
const writeWait = 10 * time.Second

// Session represents one live client connection.
type Session struct {
	// ID uniquely identifies this connection for its lifetime.
	ID string

	conn net.Conn

	// writeMu serializes writes to the socket. Broadcasts from other
	// connections' dispatchers and replies from this session's own dispatcher
	// may interleave.
	writeMu sync.Mutex

	// stateMu guards user and authenticated.
	stateMu       sync.RWMutex
	user          *directory.User
	authenticated bool

	logger zerolog.Logger
}

// New wraps an accepted connection in a Session. The session starts
// unauthenticated.
func New(conn net.Conn) *Session {
	id := randx.SessionID()

	sessionLogger := logx.Logger().With().
		Str("session_id", id).
		Str("remote_addr", conn.RemoteAddr().String()).
		Logger()

	return &Session{
		ID:     id,
		conn:   conn,
		logger: sessionLogger,
	}
}

// Conn exposes the underlying connection for the dispatcher's read loop, which
// is the sole reader of the socket.
func (s *Session) Conn() net.Conn {
	return s.conn
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// Authenticate records a successful AUTH or SIGNUP, binding the durable user
// identity to this session.
func (s *Session) Authenticate(user *directory.User) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.user = user
	s.authenticated = true
}

// IsAuthenticated reports whether the session holds an authenticated identity.
func (s *Session) IsAuthenticated() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.authenticated
}

// User returns the bound identity, nil while unauthenticated.
func (s *Session) User() *directory.User {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.user
}

// WriteResponse encodes and writes one response to this session's socket under
// the write lock and deadline. Failures affect only this session; the caller
// decides whether to log or drop.
func (s *Session) WriteResponse(resp *protocol.Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	_, err := s.conn.Write([]byte(resp.Encode()))
	return err
}

// Close closes the socket. Any blocked read on the connection unblocks,
// terminating the dispatcher loop.
func (s *Session) Close() {
	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Session connection close error.")
	}
}
