/*
Package client implements the chat client API: the connection lifecycle, the
request constructors, and the asynchronous response bus.

This file defines the Client. After Connect, a single receiver goroutine owns
the read side of the socket and feeds the Bus; request methods write on the
shared socket under a lock. There is no synchronous request/response call: all
responses arrive through subscriptions or the per-tag pull queues.
*/
package client

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"rasel/internal/pkg/logx"
	"rasel/internal/protocol"
)

const dialKeepAlive = 30 * time.Second

var (
	// ErrNotConnected is returned by request methods before Connect or after
	// the connection dropped.
	ErrNotConnected = errors.New("client: not connected")

	// ErrNotAuthenticated is returned by request methods that require a prior
	// successful AUTH or SIGNUP.
	ErrNotAuthenticated = errors.New("client: not authenticated")
)

// Client is a connection to one chat server.
type Client struct {
	addr string

	mu   sync.Mutex
	conn net.Conn

	connected     atomic.Bool
	authenticated atomic.Bool

	credMu      sync.RWMutex
	credentials *protocol.Credentials

	bus *Bus

	logger zerolog.Logger
}

// New constructs a Client for the given server address. No connection is made
// until Connect.
func New(addr string) *Client {
	return &Client{
		addr:   addr,
		bus:    NewBus(),
		logger: logx.Logger().With().Str("component", "client").Str("server_addr", addr).Logger(),
	}
}

// Connect opens the persistent keep-alive connection and starts the receiver
// goroutine, the sole reader of the socket.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected.Load() {
		return nil
	}

	dialer := net.Dialer{KeepAlive: dialKeepAlive}
	conn, err := dialer.Dial("tcp", c.addr)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected.Store(true)

	go c.receiveLoop(conn)

	c.logger.Info().Msg("Connected to server.")
	return nil
}

// Disconnect closes the socket, which unblocks the receiver's read and
// terminates its loop. A dropped connection requires a fresh AUTH.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.connected.Store(false)
	c.authenticated.Store(false)
	return err
}

// IsConnected reflects only local socket state, not peer liveness.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// IsAuthenticated reports whether the last AUTH/SIGNUP outcome was a success.
func (c *Client) IsAuthenticated() bool {
	return c.authenticated.Load()
}

// receiveLoop decodes the inbound response stream and publishes to the bus
// until the connection closes or framing breaks, then terminates silently.
// Further events simply stop arriving.
func (c *Client) receiveLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		resp, err := protocol.ReadResponse(reader)
		if err != nil {
			c.logger.Debug().Err(err).Msg("Receiver loop terminated.")
			c.connected.Store(false)
			c.authenticated.Store(false)
			return
		}

		// Track auth state before handlers observe the event.
		switch resp.Resource {
		case protocol.ResourceAuthSuccess:
			c.authenticated.Store(true)
		case protocol.ResourceAuthFailure:
			c.authenticated.Store(false)
		}

		c.bus.Publish(resp)
	}
}

// send encodes and writes one request on the shared socket.
func (c *Client) send(req *protocol.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected.Load() {
		return ErrNotConnected
	}

	_, err := c.conn.Write([]byte(req.Encode()))
	return err
}

// sendAuthenticated attaches the stored credentials and sends, rejecting the
// call when no successful AUTH/SIGNUP happened yet.
func (c *Client) sendAuthenticated(req *protocol.Request) error {
	if !c.authenticated.Load() {
		return ErrNotAuthenticated
	}

	c.credMu.RLock()
	req.Credentials = c.credentials
	c.credMu.RUnlock()

	return c.send(req)
}

// Authenticate issues an AUTH request. The outcome arrives asynchronously on
// the AUTH_SUCCESS or AUTH_FAILURE tag.
func (c *Client) Authenticate(creds protocol.Credentials) error {
	c.credMu.Lock()
	c.credentials = &creds
	c.credMu.Unlock()

	return c.send(&protocol.Request{
		Intent:      protocol.IntentAuth,
		Credentials: &creds,
	})
}

// Signup issues a SIGNUP request; success auto-authenticates server-side.
func (c *Client) Signup(creds protocol.Credentials) error {
	c.credMu.Lock()
	c.credentials = &creds
	c.credMu.Unlock()

	return c.send(&protocol.Request{
		Intent:      protocol.IntentSignup,
		Credentials: &creds,
	})
}

// SendMessage sends a text message to a group. Newlines are flattened: the
// line protocol cannot carry them inside a field.
func (c *Client) SendMessage(group, message string) error {
	message = strings.ReplaceAll(message, "\n", " ")

	return c.sendAuthenticated(&protocol.Request{
		Intent: protocol.IntentSend,
		Group:  group,
		Data:   message,
	})
}

// CreateGroup creates a new group administered by this client's user.
func (c *Client) CreateGroup(name string) error {
	return c.sendAuthenticated(&protocol.Request{
		Intent: protocol.IntentCreate,
		Group:  name,
	})
}

// RequestGroups asks for the caller's group memberships; the answer arrives on
// the GROUPS tag.
func (c *Client) RequestGroups() error {
	return c.sendAuthenticated(&protocol.Request{Intent: protocol.IntentGetGroups})
}

// RequestUsers asks for all registered users; the answer arrives on the USERS
// tag.
func (c *Client) RequestUsers() error {
	return c.sendAuthenticated(&protocol.Request{Intent: protocol.IntentGetUsers})
}

// RequestGroupUsers asks for the member list of one group, on the USERS tag.
func (c *Client) RequestGroupUsers(group string) error {
	return c.sendAuthenticated(&protocol.Request{
		Intent: protocol.IntentGetUsers,
		Group:  group,
	})
}

// RequestGroupListing asks for the legacy plain-text listing of all groups.
// The response is untagged and only reachable through the receiver's log of
// responses, so most front-ends prefer RequestGroups.
func (c *Client) RequestGroupListing() error {
	return c.sendAuthenticated(&protocol.Request{Intent: protocol.IntentGet})
}

// AddUserToGroup asks the server to add the named user to the group. The
// caller must be the group's admin.
func (c *Client) AddUserToGroup(group, username string) error {
	return c.sendAuthenticated(&protocol.Request{
		Intent: protocol.IntentAdd,
		Group:  group,
		Data:   username,
	})
}

// On subscribes a handler for a resource tag.
func (c *Client) On(resource protocol.Resource, handler Handler) Subscription {
	return c.bus.Subscribe(resource, handler)
}

// OnMessages subscribes to broadcast chat messages.
func (c *Client) OnMessages(handler Handler) Subscription {
	return c.bus.Subscribe(protocol.ResourceMessages, handler)
}

// OnGroups subscribes to group-list responses.
func (c *Client) OnGroups(handler Handler) Subscription {
	return c.bus.Subscribe(protocol.ResourceGroups, handler)
}

// OnUsers subscribes to user-list responses.
func (c *Client) OnUsers(handler Handler) Subscription {
	return c.bus.Subscribe(protocol.ResourceUsers, handler)
}

// OnAuthSuccess subscribes to successful authentication events.
func (c *Client) OnAuthSuccess(handler Handler) Subscription {
	return c.bus.Subscribe(protocol.ResourceAuthSuccess, handler)
}

// OnAuthFailure subscribes to failed authentication events.
func (c *Client) OnAuthFailure(handler Handler) Subscription {
	return c.bus.Subscribe(protocol.ResourceAuthFailure, handler)
}

// Unsubscribe removes a subscription obtained from one of the On helpers.
func (c *Client) Unsubscribe(sub Subscription) {
	c.bus.Unsubscribe(sub)
}

// Queue returns the pull-style FIFO for a resource tag.
func (c *Client) Queue(resource protocol.Resource) <-chan *protocol.Response {
	return c.bus.Queue(resource)
}

// Username returns the username of the stored credentials, empty before the
// first Authenticate/Signup call.
func (c *Client) Username() string {
	c.credMu.RLock()
	defer c.credMu.RUnlock()

	if c.credentials == nil {
		return ""
	}
	return c.credentials.Username
}

// Close tears down the connection and the bus worker pool.
func (c *Client) Close() error {
	err := c.Disconnect()
	c.bus.Close()
	return err
}
