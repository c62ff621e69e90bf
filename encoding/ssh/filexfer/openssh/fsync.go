// Package openssh implements the OpenSSH SFTP protocol extensions:
// fsync@openssh.com, posix-rename@openssh.com, and statvfs@openssh.com.
package openssh

import (
	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
)

const extensionFSync = "fsync@openssh.com"

// ExtensionFSync returns an ExtensionPair suitable to append into an sshfx.InitPacket or sshfx.VersionPacket.
func ExtensionFSync() *sshfx.ExtensionPair {
	return &sshfx.ExtensionPair{
		Name: extensionFSync,
		Data: "1",
	}
}

// FSyncExtendedPacket defines the fsync@openssh.com extended packet-specific data.
type FSyncExtendedPacket struct {
	Handle string
}

// MarshalPacket returns a two-part binary encoding of the full SSH_FXP_EXTENDED packet.
func (ep *FSyncExtendedPacket) MarshalPacket(reqid uint32) (header, payload []byte, err error) {
	p := &sshfx.ExtendedPacket{
		RequestID:       reqid,
		ExtendedRequest: extensionFSync,
		Data:            ep,
	}
	return p.MarshalPacket()
}

// MarshalBinary encodes ep into the binary encoding of the fsync@openssh.com
// extended packet-specific data (the handle string only; it does not encode
// the enclosing SSH_FXP_EXTENDED envelope).
func (ep *FSyncExtendedPacket) MarshalBinary() ([]byte, error) {
	size := 4 + len(ep.Handle)

	buf := sshfx.NewBuffer(make([]byte, 0, size))
	buf.AppendString(ep.Handle)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the fsync@openssh.com extended packet-specific data into ep.
func (ep *FSyncExtendedPacket) UnmarshalBinary(data []byte) (err error) {
	buf := sshfx.NewBuffer(data)

	ep.Handle, err = buf.ConsumeString()
	return err
}
