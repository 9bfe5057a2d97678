package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasel/internal/app/directory"
	"rasel/internal/app/session"
	"rasel/internal/configs"
	"rasel/internal/pkg/passwd"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment: "development",
		ListenAddr:  "127.0.0.1:0",
		ConnRate:    100,
		ConnBurst:   100,
	}
	s := New(cfg, directory.NewStore(passwd.Plain{}), session.NewRegistry())
	s.startedAt = time.Now()
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.healthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatusReportsDirectoryCounters(t *testing.T) {
	s := newTestServer(t)

	alice, cerr := s.store.CreateUser("alice", "pw")
	require.Nil(t, cerr)
	_, cerr = s.store.CreateGroup("team1", alice)
	require.Nil(t, cerr)

	rec := httptest.NewRecorder()
	s.healthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload statusPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, 1, payload.Users)
	assert.Equal(t, 1, payload.Groups)
	assert.Equal(t, 0, payload.Sessions)
	assert.Equal(t, 0, payload.Online)
	assert.GreaterOrEqual(t, payload.UptimeSeconds, int64(0))
}

func TestStatusRejectsNonGet(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.healthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
