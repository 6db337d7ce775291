// Package server is the thin gin-based adapter (C10) translating the
// wire-codec HTTP envelope onto the engine's Go API. Handlers here hold
// no business logic: every gate, invariant, and side effect lives in
// internal/engine and its collaborators.
package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faytonn/clobx/pkg/wire"
	"github.com/faytonn/clobx/pkg/xerrors"
)

// readBody decodes the request body as a galactic-buffer message and
// returns the decoded fields plus the version byte it arrived in, so the
// response can be encoded back in the same version (§9).
func readBody(c *gin.Context) (*wire.Object, wire.Version, *xerrors.Error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, 0, xerrors.New(xerrors.BadRequest, "failed to read request body")
	}
	if len(data) == 0 {
		return wire.NewObject(), wire.V2, nil
	}
	obj, err := wire.Decode(data)
	if err != nil {
		return nil, 0, xerrors.New(xerrors.BadRequest, "malformed request envelope")
	}
	return obj, wire.Version(data[0]), nil
}

// writeObject encodes fields in version and writes it with status.
func writeObject(c *gin.Context, status int, version wire.Version, fields *wire.Object) {
	if fields == nil {
		fields = wire.NewObject()
	}
	data, err := wire.Encode(version, fields)
	if err != nil {
		c.Data(http.StatusInternalServerError, "application/octet-stream", nil)
		return
	}
	c.Data(status, "application/octet-stream", data)
}

// writeEmpty writes a bodyless status (204, etc).
func writeEmpty(c *gin.Context, status int) {
	c.Status(status)
}

// writeError translates a *xerrors.Error to its mapped status code and an
// encoded {error, message} envelope (§7).
func writeError(c *gin.Context, version wire.Version, err *xerrors.Error) {
	fields := wire.NewObject().
		Set("error", wire.Str(string(err.Kind))).
		Set("message", wire.Str(err.Message))
	writeObject(c, err.StatusCode(), version, fields)
}

func badRequest(msg string) *xerrors.Error { return xerrors.New(xerrors.BadRequest, msg) }

// bearerToken extracts the token from an `Authorization: Bearer <token>` header.
func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
