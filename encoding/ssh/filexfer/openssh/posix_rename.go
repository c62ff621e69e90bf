package openssh

import (
	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
)

const extensionPosixRename = "posix-rename@openssh.com"

// ExtensionPosixRename returns an ExtensionPair suitable to append into an
// sshfx.InitPacket or sshfx.VersionPacket.
func ExtensionPosixRename() *sshfx.ExtensionPair {
	return &sshfx.ExtensionPair{
		Name: extensionPosixRename,
		Data: "1",
	}
}

// PosixRenameExtendedPacket defines the posix-rename@openssh.com extended
// packet-specific data: an atomic rename that overwrites newpath if it exists.
type PosixRenameExtendedPacket struct {
	Oldpath string
	Newpath string
}

// MarshalPacket returns a two-part binary encoding of the full SSH_FXP_EXTENDED packet.
func (ep *PosixRenameExtendedPacket) MarshalPacket(reqid uint32) (header, payload []byte, err error) {
	p := &sshfx.ExtendedPacket{
		RequestID:       reqid,
		ExtendedRequest: extensionPosixRename,
		Data:            ep,
	}
	return p.MarshalPacket()
}

// MarshalBinary encodes ep into the binary encoding of the
// posix-rename@openssh.com extended packet-specific data.
func (ep *PosixRenameExtendedPacket) MarshalBinary() ([]byte, error) {
	size := 4 + len(ep.Oldpath) + 4 + len(ep.Newpath)

	buf := sshfx.NewBuffer(make([]byte, 0, size))
	buf.AppendString(ep.Oldpath)
	buf.AppendString(ep.Newpath)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the posix-rename@openssh.com extended
// packet-specific data into ep.
func (ep *PosixRenameExtendedPacket) UnmarshalBinary(data []byte) (err error) {
	buf := sshfx.NewBuffer(data)

	if ep.Oldpath, err = buf.ConsumeString(); err != nil {
		return err
	}

	ep.Newpath, err = buf.ConsumeString()
	return err
}
