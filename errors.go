package sftp

import (
	"fmt"
	"io"
	"os"

	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
)

// errEOF is returned internally when a READ's STATUS reply carries
// SSH_FX_EOF; callers see it as io.EOF.
var errEOF = io.EOF

// StatusError reports a server-returned SSH_FXP_STATUS failure. Its Code is
// one of the SSH_FX_* constants; its Error() text is the fixed English
// phrase for that code, matching the wording used by OpenSSH's sftp-server
// and by earlier revisions of this client.
type StatusError struct {
	Code      uint32
	msg, lang string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("sftp: %q (%s)", e.msg, fxCodeText(e.Code))
	}
	return "sftp: " + fxCodeText(e.Code)
}

// FxCode returns the raw SSH_FX_* status code.
func (e *StatusError) FxCode() uint32 {
	return e.Code
}

// Is supports errors.Is(err, os.ErrNotExist) and friends for the common codes.
func (e *StatusError) Is(target error) bool {
	switch sshfx.Status(e.Code) {
	case sshfx.StatusNoSuchFile:
		return target == os.ErrNotExist
	case sshfx.StatusPermissionDenied:
		return target == os.ErrPermission
	case sshfx.StatusEOF:
		return target == io.EOF
	default:
		return false
	}
}

func fxCodeText(code uint32) string {
	switch sshfx.Status(code) {
	case sshfx.StatusOK:
		return "success"
	case sshfx.StatusEOF:
		return "EOF"
	case sshfx.StatusNoSuchFile:
		return "no such file or directory"
	case sshfx.StatusPermissionDenied:
		return "permission denied"
	case sshfx.StatusFailure:
		return "failure"
	case sshfx.StatusBadMessage:
		return "bad message"
	case sshfx.StatusNoConnection:
		return "no connection"
	case sshfx.StatusConnectionLost:
		return "connection lost"
	case sshfx.StatusOPUnsupported:
		return "operation unsupported"
	default:
		return "unknown error code"
	}
}

// statusToError converts a received STATUS packet into an error, or nil for
// SSH_FX_OK. A StatusCode of EOF is translated by the caller into io.EOF
// where that is the documented convention (see classifyReadResult); here it
// is always surfaced as a *StatusError so that non-read callers can inspect
// the code.
func statusToError(p *sshfx.StatusPacket) error {
	if p.StatusCode == sshfx.StatusOK {
		return nil
	}

	return &StatusError{
		Code: uint32(p.StatusCode),
		msg:  p.ErrorMessage,
		lang: p.LanguageTag,
	}
}

// protocolError reports a malformed or unexpected packet, or an internal
// inconsistency in the request table. It is never a *StatusError: the
// failure originated on this side of the wire, not in a server status code.
type protocolError struct {
	msg string
}

func (e *protocolError) Error() string { return "sftp: " + e.msg }

func errProtocol(format string, args ...interface{}) error {
	return &protocolError{msg: fmt.Sprintf(format, args...)}
}

// errRequestIDMismatch is returned by the request table when an inbound
// packet's ID does not match any registered outstanding request.
var errRequestIDMismatch = &protocolError{msg: "request ID mismatch"}

// ErrExtensionUnsupported is returned by operations that depend on a
// server-side extension (statvfs@openssh.com, fsync@openssh.com)
// the server never advertised in its VERSION reply.
var ErrExtensionUnsupported = &protocolError{msg: "server did not advertise the required extension"}
