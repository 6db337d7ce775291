package engine

import "github.com/faytonn/clobx/pkg/xerrors"

// Register creates a new user account (§4.8, §4.7 triggers a snapshot).
func (e *Engine) Register(username, password string) *xerrors.Error {
	e.mu.Lock()
	if err := e.creds.Register(username, password); err != nil {
		e.mu.Unlock()
		return err
	}
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}

// Login authenticates username/password and mints a fresh token.
// Sessions are not durable, so login itself does not trigger a snapshot.
func (e *Engine) Login(username, password string) (string, *xerrors.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.creds.Login(username, password)
}

// ChangePassword verifies the old password and invalidates every
// existing token for the user (§4.8, §4.7 triggers a snapshot).
func (e *Engine) ChangePassword(username, oldPassword, newPassword string) *xerrors.Error {
	e.mu.Lock()
	if err := e.creds.ChangePassword(username, oldPassword, newPassword); err != nil {
		e.mu.Unlock()
		return err
	}
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}

// DNASubmit registers a DNA reference sample for an existing user
// (§4.7 triggers a snapshot).
func (e *Engine) DNASubmit(username, password, sample string) *xerrors.Error {
	e.mu.Lock()
	if err := e.creds.DNASubmit(username, password, sample); err != nil {
		e.mu.Unlock()
		return err
	}
	state := e.snapshotLocked()
	e.mu.Unlock()

	e.snap.SaveAsync(state)
	return nil
}

// DNALogin authenticates username via codon-edit-distance match and
// mints a fresh token. Not a state-changing commit: no snapshot.
func (e *Engine) DNALogin(username, sample string) (string, *xerrors.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.creds.DNALogin(username, sample)
}
