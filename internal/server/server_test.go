package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/internal/clock"
	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/internal/eventbus"
	"github.com/faytonn/clobx/internal/snapshot"
	"github.com/faytonn/clobx/internal/stream"
	"github.com/faytonn/clobx/pkg/config"
	"github.com/faytonn/clobx/pkg/wire"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	bus := eventbus.New(16, zap.NewNop())
	snap, err := snapshot.NewWriter("", zap.NewNop())
	require.NoError(t, err)
	eng := engine.New(clock.New(), zap.NewNop(), bus, snap, engine.WindowParams{PreWindowDays: 15, PostWindowSec: 60}, "password123")
	hub := stream.New(bus, zap.NewNop())
	cfg := config.DefaultConfig()
	cfg.Server.Mode = "test"
	return New(eng, hub, cfg, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	s := testServer(t)

	body, err := wire.Encode(wire.V2, wire.NewObject().Set("username", wire.Str("alice")).Set("password", wire.Str("secret")))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, 204, rec.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req2)
	assert.Equal(t, 200, rec2.Code)

	obj, err := wire.Decode(rec2.Body.Bytes())
	require.NoError(t, err)
	token, err := obj.GetString("token")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRegisterTwiceConflicts(t *testing.T) {
	s := testServer(t)
	body, _ := wire.Encode(wire.V2, wire.NewObject().Set("username", wire.Str("bob")).Set("password", wire.Str("secret")))

	rec1 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	assert.Equal(t, 204, rec1.Code)

	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	assert.Equal(t, 409, rec2.Code)
}
