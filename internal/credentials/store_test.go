package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faytonn/clobx/pkg/xerrors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))

	token, err := s.Login("alice", "hunter2")
	require.Nil(t, err)
	assert.NotEmpty(t, token)

	owner, ok := s.Authenticate(token)
	require.True(t, ok)
	assert.Equal(t, "alice", owner)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	err := s.Register("alice", "other")
	require.NotNil(t, err)
	assert.Equal(t, xerrors.Conflict, err.Kind)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	_, err := s.Login("alice", "wrong")
	require.NotNil(t, err)
	assert.Equal(t, xerrors.Unauthorized, err.Kind)
}

func TestChangePasswordInvalidatesTokens(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	token, err := s.Login("alice", "hunter2")
	require.Nil(t, err)

	require.Nil(t, s.ChangePassword("alice", "hunter2", "newpass"))

	_, ok := s.Authenticate(token)
	assert.False(t, ok)

	newToken, err := s.Login("alice", "newpass")
	require.Nil(t, err)
	assert.NotEmpty(t, newToken)
}

func TestDNASubmitAndLogin(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	reference := strings.Repeat("ACG", 10)
	require.Nil(t, s.DNASubmit("alice", "hunter2", reference))

	token, err := s.DNALogin("alice", reference)
	require.Nil(t, err)
	assert.NotEmpty(t, token)
}

func TestDNASubmitRejectsInvalidSample(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	err := s.DNASubmit("alice", "hunter2", "ACGX")
	require.NotNil(t, err)
	assert.Equal(t, xerrors.BadRequest, err.Kind)
}

func TestDNALoginNoSamplesRegistered(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	_, err := s.DNALogin("alice", strings.Repeat("ACG", 10))
	require.NotNil(t, err)
	assert.Equal(t, xerrors.Unauthorized, err.Kind)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newStore(t)
	require.Nil(t, s.Register("alice", "hunter2"))
	require.Nil(t, s.DNASubmit("alice", "hunter2", strings.Repeat("ACG", 4)))

	snap := s.Export()

	s2 := newStore(t)
	s2.Import(snap)
	assert.True(t, s2.UserExists("alice"))
	_, err := s2.Login("alice", "hunter2")
	assert.Nil(t, err)
}
