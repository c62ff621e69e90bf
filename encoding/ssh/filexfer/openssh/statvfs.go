package openssh

import (
	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
)

const extensionStatVFS = "statvfs@openssh.com"

// ExtensionStatVFS returns an ExtensionPair suitable to append into an
// sshfx.InitPacket or sshfx.VersionPacket.
func ExtensionStatVFS() *sshfx.ExtensionPair {
	return &sshfx.ExtensionPair{
		Name: extensionStatVFS,
		Data: "2",
	}
}

// StatVFSExtendedPacket defines the statvfs@openssh.com request's
// extended packet-specific data: a single path to statfs.
type StatVFSExtendedPacket struct {
	Path string
}

// MarshalPacket returns a two-part binary encoding of the full SSH_FXP_EXTENDED packet.
func (ep *StatVFSExtendedPacket) MarshalPacket(reqid uint32) (header, payload []byte, err error) {
	p := &sshfx.ExtendedPacket{
		RequestID:       reqid,
		ExtendedRequest: extensionStatVFS,
		Data:            ep,
	}
	return p.MarshalPacket()
}

// MarshalBinary encodes ep into the binary encoding of the
// statvfs@openssh.com extended packet-specific data.
func (ep *StatVFSExtendedPacket) MarshalBinary() ([]byte, error) {
	size := 4 + len(ep.Path)

	buf := sshfx.NewBuffer(make([]byte, 0, size))
	buf.AppendString(ep.Path)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the statvfs@openssh.com extended packet-specific
// data into ep.
func (ep *StatVFSExtendedPacket) UnmarshalBinary(data []byte) (err error) {
	buf := sshfx.NewBuffer(data)

	ep.Path, err = buf.ConsumeString()
	return err
}

// StatVFS defines the statvfs@openssh.com reply: a subset of struct statvfs,
// carried as the Data of an SSH_FXP_EXTENDED_REPLY.
//
// See https://github.com/openssh/openssh-portable/blob/master/PROTOCOL, section 3.3.
type StatVFS struct {
	BSize   uint64 // file system block size
	FRSize  uint64 // fundamental fs block size
	Blocks  uint64 // number of blocks (unit f_frsize)
	BFree   uint64 // free blocks in file system
	BAvail  uint64 // free blocks for non-root
	Files   uint64 // total file inodes
	FFree   uint64 // free file inodes
	FAvail  uint64 // free file inodes for non-root
	FSID    uint64 // file system id
	Flag    uint64 // bit mask of f_flag values
	Namemax uint64 // maximum filename length
}

// MarshalBinary encodes v into the binary encoding of the
// statvfs@openssh.com extended reply packet-specific data.
func (v *StatVFS) MarshalBinary() ([]byte, error) {
	buf := sshfx.NewBuffer(make([]byte, 0, 11*8))

	buf.AppendUint64(v.BSize)
	buf.AppendUint64(v.FRSize)
	buf.AppendUint64(v.Blocks)
	buf.AppendUint64(v.BFree)
	buf.AppendUint64(v.BAvail)
	buf.AppendUint64(v.Files)
	buf.AppendUint64(v.FFree)
	buf.AppendUint64(v.FAvail)
	buf.AppendUint64(v.FSID)
	buf.AppendUint64(v.Flag)
	buf.AppendUint64(v.Namemax)

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the statvfs@openssh.com extended reply
// packet-specific data into v.
func (v *StatVFS) UnmarshalBinary(data []byte) (err error) {
	buf := sshfx.NewBuffer(data)

	fields := []*uint64{
		&v.BSize, &v.FRSize, &v.Blocks, &v.BFree, &v.BAvail,
		&v.Files, &v.FFree, &v.FAvail, &v.FSID, &v.Flag, &v.Namemax,
	}
	for _, f := range fields {
		if *f, err = buf.ConsumeUint64(); err != nil {
			return err
		}
	}

	return nil
}

// FreeSpace returns the total free space in bytes.
func (v *StatVFS) FreeSpace() uint64 {
	return v.FRSize * v.BFree
}

// TotalSpace returns the total filesystem space in bytes.
func (v *StatVFS) TotalSpace() uint64 {
	return v.FRSize * v.Blocks
}

func init() {
	sshfx.RegisterExtendedPacketType(extensionPosixRename, func() sshfx.ExtendedData {
		return new(PosixRenameExtendedPacket)
	})
	sshfx.RegisterExtendedPacketType(extensionStatVFS, func() sshfx.ExtendedData {
		return new(StatVFSExtendedPacket)
	})
	sshfx.RegisterExtendedPacketType(extensionFSync, func() sshfx.ExtendedData {
		return new(FSyncExtendedPacket)
	})
}
