package dispatch_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasel/internal/app/directory"
	"rasel/internal/app/dispatch"
	"rasel/internal/app/session"
	"rasel/internal/pkg/passwd"
	"rasel/internal/protocol"
)

// testClient drives one dispatcher over an in-process pipe, playing the role
// of the remote peer.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newHarness(t *testing.T) (*directory.Store, *session.Registry) {
	t.Helper()
	return directory.NewStore(passwd.Plain{}), session.NewRegistry()
}

func connect(t *testing.T, store *directory.Store, reg *session.Registry) *testClient {
	t.Helper()

	srvConn, cliConn := net.Pipe()
	sess := session.New(srvConn)
	reg.Register(sess)
	go dispatch.New(sess, store, reg).Run()

	t.Cleanup(func() { cliConn.Close() })
	return &testClient{t: t, conn: cliConn, r: bufio.NewReader(cliConn)}
}

func (c *testClient) send(req *protocol.Request) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := c.conn.Write([]byte(req.Encode()))
	require.NoError(c.t, err)
}

func (c *testClient) read() *protocol.Response {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
	resp, err := protocol.ReadResponse(c.r)
	require.NoError(c.t, err)
	return resp
}

func (c *testClient) roundTrip(req *protocol.Request) *protocol.Response {
	c.t.Helper()
	c.send(req)
	return c.read()
}

func (c *testClient) signup(username, password string) {
	c.t.Helper()
	resp := c.roundTrip(&protocol.Request{
		Intent:      protocol.IntentSignup,
		Credentials: &protocol.Credentials{Username: username, Password: password},
	})
	require.Equal(c.t, protocol.StatusOK, resp.Status)
	require.Equal(c.t, protocol.ResourceAuthSuccess, resp.Resource)
}

func TestUnauthenticatedRequestsForbidden(t *testing.T) {
	store, reg := newHarness(t)
	cli := connect(t, store, reg)

	for _, intent := range []protocol.Intent{
		protocol.IntentSend,
		protocol.IntentCreate,
		protocol.IntentGet,
		protocol.IntentGetGroups,
		protocol.IntentGetUsers,
		protocol.IntentAdd,
	} {
		resp := cli.roundTrip(&protocol.Request{Intent: intent, Group: "team1", Data: "x"})
		assert.Equal(t, protocol.StatusForbidden, resp.Status, "intent %s", intent)
		assert.Equal(t, "You should be authenticated first", resp.Data, "intent %s", intent)
	}

	// nothing leaked into the store
	assert.Equal(t, 0, store.GroupCount())
	assert.Empty(t, store.MessagesForGroup("team1"))
}

func TestSignupAuthenticates(t *testing.T) {
	store, reg := newHarness(t)
	cli := connect(t, store, reg)

	cli.signup("alice", "secret")

	assert.Equal(t, 1, store.UserCount())
	assert.Equal(t, 1, reg.IdentityCount())

	// the session can act immediately, no separate AUTH needed
	resp := cli.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, "Group created successfully", resp.Data)
}

func TestSignupDuplicateUsername(t *testing.T) {
	store, reg := newHarness(t)
	first := connect(t, store, reg)
	first.signup("alice", "secret")

	second := connect(t, store, reg)
	resp := second.roundTrip(&protocol.Request{
		Intent:      protocol.IntentSignup,
		Credentials: &protocol.Credentials{Username: "alice", Password: "other"},
	})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, protocol.ResourceAuthFailure, resp.Resource)

	// the failed session stays unauthenticated
	resp = second.roundTrip(&protocol.Request{Intent: protocol.IntentGetGroups})
	assert.Equal(t, protocol.StatusForbidden, resp.Status)
}

func TestAuth(t *testing.T) {
	store, reg := newHarness(t)
	_, cerr := store.CreateUser("alice", "secret")
	require.Nil(t, cerr)

	cli := connect(t, store, reg)

	resp := cli.roundTrip(&protocol.Request{
		Intent:      protocol.IntentAuth,
		Credentials: &protocol.Credentials{Username: "alice", Password: "wrong"},
	})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, protocol.ResourceAuthFailure, resp.Resource)
	assert.Equal(t, 0, reg.IdentityCount())

	resp = cli.roundTrip(&protocol.Request{
		Intent:      protocol.IntentAuth,
		Credentials: &protocol.Credentials{Username: "alice", Password: "secret"},
	})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, protocol.ResourceAuthSuccess, resp.Resource)
	assert.Equal(t, "successful authentication", resp.Data)
	assert.Equal(t, 1, reg.IdentityCount())
}

func TestAuthWithoutCredentials(t *testing.T) {
	store, reg := newHarness(t)
	cli := connect(t, store, reg)

	resp := cli.roundTrip(&protocol.Request{Intent: protocol.IntentAuth})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, protocol.ResourceAuthFailure, resp.Resource)
}

func TestLegacyGroupListing(t *testing.T) {
	store, reg := newHarness(t)
	cli := connect(t, store, reg)
	cli.signup("alice", "secret")

	resp := cli.roundTrip(&protocol.Request{Intent: protocol.IntentGet})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, "No groups available", resp.Data)
	assert.Empty(t, resp.Resource)

	for _, g := range []string{"team1", "team2"} {
		r := cli.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: g})
		require.Equal(t, protocol.StatusOK, r.Status)
	}

	resp = cli.roundTrip(&protocol.Request{Intent: protocol.IntentGet})
	assert.Equal(t, "Groups: team1, team2", resp.Data)
}

func TestGetGroupsScopedToCaller(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")
	bob := connect(t, store, reg)
	bob.signup("bob", "pw")

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)

	resp := alice.roundTrip(&protocol.Request{Intent: protocol.IntentGetGroups})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, protocol.ResourceGroups, resp.Resource)
	assert.Equal(t, protocol.DataTypeJSON, resp.DataType)
	assert.JSONEq(t, `["team1"]`, resp.Data)

	// bob is in no group yet
	resp = bob.roundTrip(&protocol.Request{Intent: protocol.IntentGetGroups})
	assert.JSONEq(t, `[]`, resp.Data)
}

func TestGetUsers(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")
	bob := connect(t, store, reg)
	bob.signup("bob", "pw")

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)

	resp := alice.roundTrip(&protocol.Request{Intent: protocol.IntentGetUsers})
	assert.Equal(t, protocol.ResourceUsers, resp.Resource)
	assert.JSONEq(t, `["alice","bob"]`, resp.Data)
	assert.Empty(t, resp.Group)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentGetUsers, Group: "team1"})
	assert.Equal(t, "team1", resp.Group)
	assert.JSONEq(t, `["alice"]`, resp.Data)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentGetUsers, Group: "ghost"})
	assert.Equal(t, protocol.StatusError, resp.Status)
}

func TestAddMember(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")
	bob := connect(t, store, reg)
	bob.signup("bob", "pw")

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)

	// only the group admin may add members
	resp := bob.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: "bob"})
	assert.Equal(t, protocol.StatusForbidden, resp.Status)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: "bob"})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, "User added successfully", resp.Data)

	// re-adding is reported as success, not an error
	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: "bob"})
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, "User is already a member", resp.Data)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: "nobody"})
	assert.Equal(t, protocol.StatusError, resp.Status)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1"})
	assert.Equal(t, protocol.StatusError, resp.Status)
}

func TestSendValidation(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")
	bob := connect(t, store, reg)
	bob.signup("bob", "pw")

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)

	resp := alice.roundTrip(&protocol.Request{Intent: protocol.IntentSend, Data: "hi"})
	assert.Equal(t, protocol.StatusError, resp.Status)

	resp = alice.roundTrip(&protocol.Request{Intent: protocol.IntentSend, Group: "ghost", Data: "hi"})
	assert.Equal(t, protocol.StatusError, resp.Status)

	resp = bob.roundTrip(&protocol.Request{Intent: protocol.IntentSend, Group: "team1", Data: "hi"})
	assert.Equal(t, protocol.StatusForbidden, resp.Status)

	assert.Empty(t, store.MessagesForGroup("team1"))
}

func TestSendBroadcast(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")
	bob := connect(t, store, reg)
	bob.signup("bob", "pw")
	carol := connect(t, store, reg)
	carol.signup("carol", "pw")

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)
	for _, name := range []string{"bob", "carol"} {
		r = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: name})
		require.Equal(t, protocol.StatusOK, r.Status)
	}

	alice.send(&protocol.Request{Intent: protocol.IntentSend, Group: "team1", Data: "hello team"})

	// every online member receives the broadcast, the sender included,
	// in membership order
	for _, cli := range []*testClient{alice, bob, carol} {
		resp := cli.read()
		assert.Equal(t, protocol.StatusOK, resp.Status)
		assert.Equal(t, protocol.ResourceMessages, resp.Resource)
		assert.Equal(t, protocol.DataTypeJSON, resp.DataType)
		assert.Equal(t, "team1", resp.Group)

		payload, err := protocol.ParseMessagePayload(resp.Data)
		require.NoError(t, err)
		assert.Equal(t, "team1", payload.Group)
		assert.Equal(t, "alice", payload.SenderID)
		assert.Equal(t, "hello team", payload.Content)

		ts, terr := time.Parse(time.RFC3339, payload.Timestamp)
		require.NoError(t, terr)
		assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
	}

	msgs := store.MessagesForGroup("team1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello team", msgs[0].Content)
}

func TestSendSkipsOfflineAndDeadMembers(t *testing.T) {
	store, reg := newHarness(t)
	alice := connect(t, store, reg)
	alice.signup("alice", "pw")

	// bob exists, is a member, and holds a binding to a dead connection
	bobUser, cerr := store.CreateUser("bob", "pw")
	require.Nil(t, cerr)
	// carol exists and is a member but is offline
	_, cerr = store.CreateUser("carol", "pw")
	require.Nil(t, cerr)

	r := alice.roundTrip(&protocol.Request{Intent: protocol.IntentCreate, Group: "team1"})
	require.Equal(t, protocol.StatusOK, r.Status)
	for _, name := range []string{"bob", "carol"} {
		r = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: name})
		require.Equal(t, protocol.StatusOK, r.Status)
	}

	deadSrv, deadCli := net.Pipe()
	deadSess := session.New(deadSrv)
	deadSess.Authenticate(bobUser)
	reg.Register(deadSess)
	reg.BindIdentity("bob", deadSess)
	deadSrv.Close()
	deadCli.Close()

	dave := connect(t, store, reg)
	dave.signup("dave", "pw")
	r = alice.roundTrip(&protocol.Request{Intent: protocol.IntentAdd, Group: "team1", Data: "dave"})
	require.Equal(t, protocol.StatusOK, r.Status)

	alice.send(&protocol.Request{Intent: protocol.IntentSend, Group: "team1", Data: "anyone there?"})

	// the failed write to bob and the offline carol do not block delivery
	for _, cli := range []*testClient{alice, dave} {
		resp := cli.read()
		assert.Equal(t, protocol.ResourceMessages, resp.Resource)
	}

	require.Len(t, store.MessagesForGroup("team1"), 1)
}

func TestMalformedRequestTerminatesConnection(t *testing.T) {
	store, reg := newHarness(t)
	cli := connect(t, store, reg)

	require.NoError(t, cli.conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := cli.conn.Write([]byte("INTENT:EXPLODE\nEND_OF_REQUEST\n"))
	require.NoError(t, err)

	// the dispatcher drops the connection rather than answering garbage
	_, err = cli.r.ReadByte()
	assert.Error(t, err)

	assert.Eventually(t, func() bool { return reg.SessionCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
