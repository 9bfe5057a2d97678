/*
Package dispatch contains the server-side request dispatcher.

One Dispatcher runs per live connection. It repeatedly decodes requests off
the socket, enforces the authentication gate, executes the matching operation
against the directory store and session registry, and writes responses back,
including the group broadcast for SEND. Domain failures become ERROR or
FORBIDDEN responses to the requesting connection; only I/O and framing
failures terminate the connection.
*/
package dispatch

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"rasel/internal/app/directory"
	"rasel/internal/app/session"
	"rasel/internal/pkg/errs"
	"rasel/internal/pkg/logx"
	"rasel/internal/protocol"
)

// Dispatcher is the per-connection request loop. Its state machine is the
// session's authentication flag: UNAUTHENTICATED until a successful AUTH or
// SIGNUP, AUTHENTICATED until disconnect.
type Dispatcher struct {
	sess     *session.Session
	store    *directory.Store
	registry *session.Registry

	reader *bufio.Reader

	logger zerolog.Logger
}

// New constructs a Dispatcher for an accepted session. The dispatcher is the
// sole reader of the session's socket.
func New(sess *session.Session, store *directory.Store, registry *session.Registry) *Dispatcher {
	dispatchLogger := logx.Logger().With().
		Str("component", "dispatcher").
		Str("session_id", sess.ID).
		Str("remote_addr", sess.RemoteAddr()).
		Logger()

	return &Dispatcher{
		sess:     sess,
		store:    store,
		registry: registry,
		reader:   bufio.NewReader(sess.Conn()),
		logger:   dispatchLogger,
	}
}

// Run executes the request loop until the socket closes or framing breaks,
// then releases the session. This is the normal termination path, not an
// exceptional one.
func (d *Dispatcher) Run() {
	defer func() {
		d.registry.Unregister(d.sess)
		d.sess.Close()
		d.logger.Info().Msg("Client disconnected.")
	}()

	d.logger.Info().Msg("Client connected.")

	for {
		req, err := protocol.ReadRequest(d.reader)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, protocol.ErrFraming):
				d.logger.Info().Msg("Connection closed by peer.")
			default:
				d.logger.Warn().Err(err).Msg("Terminating connection after decode failure.")
			}
			return
		}

		d.handle(req)
	}
}

// handle routes one decoded request through the authorization gate to its
// intent handler and replies to the caller. SEND replies through the
// broadcast instead of a separate acknowledgment.
func (d *Dispatcher) handle(req *protocol.Request) {
	d.logger.Debug().
		Str("intent", string(req.Intent)).
		Bool("authenticated", d.sess.IsAuthenticated()).
		Msg("Handling request.")

	if !d.sess.IsAuthenticated() &&
		req.Intent != protocol.IntentAuth && req.Intent != protocol.IntentSignup {
		d.logger.Warn().Str("intent", string(req.Intent)).Msg("Forbidden request from unauthenticated client.")
		d.respond(failureResponse(errs.NewError(errs.ErrUnauthenticated)))
		return
	}

	var resp *protocol.Response

	switch req.Intent {
	case protocol.IntentAuth:
		resp = d.handleAuth(req)
	case protocol.IntentSignup:
		resp = d.handleSignup(req)
	case protocol.IntentCreate:
		resp = d.handleCreate(req)
	case protocol.IntentGet:
		resp = d.handleGet(req)
	case protocol.IntentGetGroups:
		resp = d.handleGetGroups(req)
	case protocol.IntentGetUsers:
		resp = d.handleGetUsers(req)
	case protocol.IntentAdd:
		resp = d.handleAdd(req)
	case protocol.IntentSend:
		// On success the caller receives its own broadcast copy; only
		// failures produce a direct reply.
		resp = d.handleSend(req)
	}

	if resp != nil {
		d.respond(resp)
	}
}

// respond writes one response to the requesting connection. A write failure
// here means the peer is gone; the read loop will notice on its next read.
func (d *Dispatcher) respond(resp *protocol.Response) {
	if err := d.sess.WriteResponse(resp); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write response to client.")
		return
	}

	d.logger.Debug().
		Str("status", string(resp.Status)).
		Str("resource", string(resp.Resource)).
		Str("group", resp.Group).
		Msg("Response sent.")
}

// failureResponse converts a domain error to its wire form.
func failureResponse(e *errs.CustomError) *protocol.Response {
	return &protocol.Response{
		Status:   e.Status,
		DataType: protocol.DataTypeText,
		Data:     e.Message,
	}
}

// authFailure tags a domain error for the client's AUTH_FAILURE subscribers.
func authFailure(e *errs.CustomError) *protocol.Response {
	resp := failureResponse(e)
	resp.Resource = protocol.ResourceAuthFailure
	return resp
}

func (d *Dispatcher) handleAuth(req *protocol.Request) *protocol.Response {
	if req.Credentials == nil {
		return authFailure(errs.NewError(errs.ErrCredentialsRequired))
	}

	user, ok := d.store.VerifyPassword(req.Credentials.Username, req.Credentials.Password)
	if !ok {
		d.logger.Warn().Str("username", req.Credentials.Username).Msg("Authentication failed.")
		return authFailure(errs.NewError(errs.ErrInvalidCredentials))
	}

	d.sess.Authenticate(user)
	d.registry.BindIdentity(user.ID(), d.sess)

	d.logger.Info().Str("user_id", user.ID()).Str("username", user.Username).Msg("Authentication succeeded.")

	return &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: protocol.ResourceAuthSuccess,
		DataType: protocol.DataTypeText,
		Data:     "successful authentication",
	}
}

func (d *Dispatcher) handleSignup(req *protocol.Request) *protocol.Response {
	if req.Credentials == nil {
		return authFailure(errs.NewError(errs.ErrCredentialsRequired))
	}

	user, cerr := d.store.CreateUser(req.Credentials.Username, req.Credentials.Password)
	if cerr != nil {
		d.logger.Warn().Str("username", req.Credentials.Username).Msg("Signup failed.")
		return authFailure(cerr)
	}

	// A fresh signup authenticates exactly like AUTH success.
	d.sess.Authenticate(user)
	d.registry.BindIdentity(user.ID(), d.sess)

	d.logger.Info().Str("user_id", user.ID()).Str("username", user.Username).Msg("Signup succeeded.")

	return &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: protocol.ResourceAuthSuccess,
		DataType: protocol.DataTypeText,
		Data:     "Signup successful and authenticated",
	}
}

func (d *Dispatcher) handleCreate(req *protocol.Request) *protocol.Response {
	if req.Group == "" {
		return failureResponse(errs.NewError(errs.ErrInvalidParams, "GROUP"))
	}

	if _, cerr := d.store.CreateGroup(req.Group, d.sess.User()); cerr != nil {
		d.logger.Warn().Str("group", req.Group).Msg("Group creation failed.")
		return failureResponse(cerr)
	}

	return protocol.OK("Group created successfully")
}

// handleGet serves the legacy plain-text listing of every group. The response
// is untagged; clients pull it synchronously from their general queue rather
// than through subscribers.
func (d *Dispatcher) handleGet(_ *protocol.Request) *protocol.Response {
	names := d.store.GroupNames()
	if len(names) == 0 {
		return protocol.OK("No groups available")
	}

	listing := "Groups:"
	for _, name := range names {
		listing += " " + name + ","
	}
	return protocol.OK(listing[:len(listing)-1])
}

func (d *Dispatcher) handleGetGroups(_ *protocol.Request) *protocol.Response {
	names := d.store.GroupsForUser(d.sess.User())
	if names == nil {
		names = []string{}
	}

	data, err := json.Marshal(names)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to marshal group list.")
		return failureResponse(errs.NewError(errs.ErrUnknown, err))
	}

	return &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: protocol.ResourceGroups,
		DataType: protocol.DataTypeJSON,
		Data:     string(data),
	}
}

func (d *Dispatcher) handleGetUsers(req *protocol.Request) *protocol.Response {
	var names []string

	if req.Group != "" {
		memberNames, ok := d.store.MemberUsernames(req.Group)
		if !ok {
			return failureResponse(errs.NewError(errs.ErrGroupNotFound))
		}
		names = memberNames
	} else {
		names = d.store.AllUsernames()
	}

	if names == nil {
		names = []string{}
	}

	data, err := json.Marshal(names)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to marshal user list.")
		return failureResponse(errs.NewError(errs.ErrUnknown, err))
	}

	return &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: protocol.ResourceUsers,
		DataType: protocol.DataTypeJSON,
		Group:    req.Group,
		Data:     string(data),
	}
}

// handleAdd adds the user named in DATA to the group named in GROUP.
// Admin-only.
func (d *Dispatcher) handleAdd(req *protocol.Request) *protocol.Response {
	if req.Group == "" || req.Data == "" {
		return failureResponse(errs.NewError(errs.ErrInvalidParams, "GROUP and DATA"))
	}

	if !d.store.GroupExists(req.Group) {
		return failureResponse(errs.NewError(errs.ErrGroupNotFound))
	}

	if !d.store.IsAdmin(req.Group, d.sess.User()) {
		d.logger.Warn().Str("group", req.Group).Msg("ADD rejected: caller is not group admin.")
		return failureResponse(errs.NewError(errs.ErrNotAdmin))
	}

	target, ok := d.store.FindByUsername(req.Data)
	if !ok {
		return failureResponse(errs.NewError(errs.ErrUserNotFound))
	}

	if cerr := d.store.AddMember(req.Group, target); cerr != nil {
		if cerr.Code == errs.ErrAlreadyMember {
			return protocol.OK("User is already a member")
		}
		return failureResponse(cerr)
	}

	d.logger.Info().
		Str("group", req.Group).
		Str("username", target.Username).
		Msg("User added to group.")

	return protocol.OK("User added successfully")
}

// handleSend validates the send, persists the message, and broadcasts one wire
// form to every currently-online member, the sender included. Per-target write
// failures are isolated: one dead member never blocks or fails the others.
func (d *Dispatcher) handleSend(req *protocol.Request) *protocol.Response {
	if req.Group == "" {
		return failureResponse(errs.NewError(errs.ErrInvalidParams, "GROUP"))
	}

	sender := d.sess.User()

	member, exists := d.store.IsMember(req.Group, sender)
	if !exists {
		return failureResponse(errs.NewError(errs.ErrGroupNotFound))
	}
	if !member {
		d.logger.Warn().Str("group", req.Group).Msg("SEND rejected: caller is not a member.")
		return failureResponse(errs.NewError(errs.ErrNotMember))
	}

	msg := &directory.Message{
		Sender:    sender,
		Group:     req.Group,
		Content:   req.Data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	d.store.AppendMessage(msg)

	payload := &protocol.MessagePayload{
		Group:      msg.Group,
		SenderID:   sender.ID(),
		SenderName: sender.Username,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
	}

	data, err := payload.MarshalString()
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to marshal message payload.")
		return failureResponse(errs.NewError(errs.ErrUnknown, err))
	}

	resp := &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: protocol.ResourceMessages,
		DataType: protocol.DataTypeJSON,
		Group:    msg.Group,
		Data:     data,
	}

	members, _ := d.store.GroupMembers(req.Group)

	delivered := 0
	for _, m := range members {
		target, online := d.registry.SessionForIdentity(m.ID())
		if !online {
			continue
		}

		if werr := target.WriteResponse(resp); werr != nil {
			d.logger.Warn().
				Err(werr).
				Str("member", m.Username).
				Str("group", req.Group).
				Msg("Broadcast write failed for member.")
			continue
		}
		delivered++
	}

	d.logger.Debug().
		Int("delivered", delivered).
		Int("members", len(members)).
		Str("group", req.Group).
		Msg("Message broadcast complete.")

	return nil
}
