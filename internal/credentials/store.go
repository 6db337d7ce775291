// Package credentials implements the credential store (C2, §3): users,
// tokens, and DNA samples. Tokens are opaque ksuids rather than JWTs
// since the store must be able to invalidate them server-side on
// password change (§4.8) regardless of any token's own expiry.
package credentials

import (
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/faytonn/clobx/internal/dna"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// User holds one account's credential and DNA samples.
type User struct {
	Username     string
	PasswordHash []byte
	DNASamples   []string
}

// Store owns users, tokens, and DNA samples (§3 Ownership).
type Store struct {
	logger *zap.Logger
	users  map[string]*User
	tokens map[string]string // token -> username
}

// New returns an empty credential store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		users:  make(map[string]*User),
		tokens: make(map[string]string),
	}
}

// Register creates a new user with the given password. Returns CONFLICT
// if the username is taken.
func (s *Store) Register(username, password string) *xerrors.Error {
	if username == "" || password == "" {
		return xerrors.New(xerrors.BadRequest, "username and password are required")
	}
	if _, exists := s.users[username]; exists {
		return xerrors.New(xerrors.Conflict, "username already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return xerrors.Wrap(xerrors.Internal, "failed to hash password", err)
	}
	s.users[username] = &User{Username: username, PasswordHash: hash}
	return nil
}

// Login verifies username/password and mints a fresh token.
func (s *Store) Login(username, password string) (string, *xerrors.Error) {
	user, ok := s.users[username]
	if !ok {
		s.logger.Warn("login failed: unknown user", zap.String("username", username))
		return "", xerrors.New(xerrors.Unauthorized, "unknown user")
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		s.logger.Warn("login failed: wrong password", zap.String("username", username))
		return "", xerrors.New(xerrors.Unauthorized, "wrong password")
	}
	s.logger.Info("login succeeded", zap.String("username", username))
	return s.issueToken(username), nil
}

// ChangePassword verifies oldPassword, sets newPassword, and invalidates
// every existing token for username (§4.8 session state machine).
func (s *Store) ChangePassword(username, oldPassword, newPassword string) *xerrors.Error {
	user, ok := s.users[username]
	if !ok {
		return xerrors.New(xerrors.Unauthorized, "unknown user")
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)) != nil {
		return xerrors.New(xerrors.Unauthorized, "wrong password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return xerrors.Wrap(xerrors.Internal, "failed to hash password", err)
	}
	user.PasswordHash = hash
	for token, owner := range s.tokens {
		if owner == username {
			delete(s.tokens, token)
		}
	}
	s.logger.Info("password changed, tokens invalidated", zap.String("username", username))
	return nil
}

// DNASubmit registers a DNA sample for an existing user; duplicates are
// silently accepted, multiple samples per user are allowed.
func (s *Store) DNASubmit(username, password, sample string) *xerrors.Error {
	if username == "" || password == "" || sample == "" {
		return xerrors.New(xerrors.BadRequest, "username, password, and dna_sample are required")
	}
	if !dna.Valid(sample) {
		return xerrors.New(xerrors.BadRequest, "invalid dna sample")
	}
	user, ok := s.users[username]
	if !ok {
		return xerrors.New(xerrors.Unauthorized, "unknown user")
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return xerrors.New(xerrors.Unauthorized, "wrong password")
	}
	user.DNASamples = append(user.DNASamples, sample)
	return nil
}

// DNALogin authenticates username by codon-edit-distance match of sample
// against any of the user's registered references (§6 dna-login rule).
func (s *Store) DNALogin(username, sample string) (string, *xerrors.Error) {
	if username == "" || sample == "" {
		return "", xerrors.New(xerrors.BadRequest, "username and dna_sample are required")
	}
	if !dna.Valid(sample) {
		return "", xerrors.New(xerrors.BadRequest, "invalid dna sample")
	}
	user, ok := s.users[username]
	if !ok || len(user.DNASamples) == 0 {
		return "", xerrors.New(xerrors.Unauthorized, "no dna registered for user")
	}
	for _, reference := range user.DNASamples {
		if dna.Matches(reference, sample) {
			return s.issueToken(username), nil
		}
	}
	return "", xerrors.New(xerrors.Unauthorized, "dna sample did not match")
}

// Authenticate resolves a bearer token to its owning username.
func (s *Store) Authenticate(token string) (string, bool) {
	username, ok := s.tokens[token]
	return username, ok
}

// UserExists reports whether username has a registered account.
func (s *Store) UserExists(username string) bool {
	_, ok := s.users[username]
	return ok
}

func (s *Store) issueToken(username string) string {
	token := ksuid.New().String()
	s.tokens[token] = username
	return token
}

// Snapshot returns the data §4.7 persists: users (with hash and DNA
// samples) and the live token map is intentionally excluded — tokens are
// re-issued on login and are not meaningful across a restart.
type Snapshot struct {
	Users map[string]PersistedUser
}

// PersistedUser is the on-disk shape of a User.
type PersistedUser struct {
	PasswordHash []byte
	DNASamples   []string
}

// Export builds a Snapshot of the current credential state.
func (s *Store) Export() Snapshot {
	users := make(map[string]PersistedUser, len(s.users))
	for name, u := range s.users {
		users[name] = PersistedUser{PasswordHash: u.PasswordHash, DNASamples: append([]string(nil), u.DNASamples...)}
	}
	return Snapshot{Users: users}
}

// Import replaces the store's users from a Snapshot (used on restart,
// §4.7); tokens always start empty since sessions are not durable.
func (s *Store) Import(snap Snapshot) {
	s.users = make(map[string]*User, len(snap.Users))
	for name, pu := range snap.Users {
		s.users[name] = &User{Username: name, PasswordHash: pu.PasswordHash, DNASamples: pu.DNASamples}
	}
	s.tokens = make(map[string]string)
}
