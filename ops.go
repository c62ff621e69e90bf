package sftp

import (
	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
	"github.com/go-sftp/sftp/encoding/ssh/filexfer/openssh"
)

// marshalFunc builds one outbound packet once a request ID has been
// allocated for it.
type marshalFunc func(reqid uint32) (header, payload []byte, err error)

// roundTrip allocates a request, marshals and sends it, and waits for the
// matched response. The request is released from the table on any failure
// that occurs before a send completes; after a successful send it is only
// ever removed by the receive loop (on match) or by shutdown (on session
// death).
func (s *Session) roundTrip(marshal marshalFunc) (result, error) {
	r := s.newRequest()

	header, payload, err := marshal(r.id)
	if err != nil {
		s.release(r)
		return result{}, err
	}

	if err := s.send(header, payload); err != nil {
		s.release(r)
		return result{}, err
	}

	s.register(r)

	res := s.wait(r)
	if res.err != nil {
		return result{}, res.err
	}

	return res, nil
}

func expectStatus(res result, op string) error {
	if res.typ != sshfx.PacketTypeStatus {
		return errProtocol("unexpected packet type %d in response to %s", res.typ, op)
	}

	var p sshfx.StatusPacket
	if err := p.UnmarshalPacketBody(res.buf); err != nil {
		return err
	}

	return statusToError(&p)
}

func expectHandle(res result, op string) (string, error) {
	switch res.typ {
	case sshfx.PacketTypeHandle:
		var p sshfx.HandlePacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return "", err
		}
		return p.Handle, nil

	case sshfx.PacketTypeStatus:
		return "", expectStatus(res, op)

	default:
		return "", errProtocol("unexpected packet type %d in response to %s", res.typ, op)
	}
}

func expectAttrs(res result, op string) (*sshfx.Attributes, error) {
	switch res.typ {
	case sshfx.PacketTypeAttrs:
		var p sshfx.AttrsPacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return nil, err
		}
		return &p.Attrs, nil

	case sshfx.PacketTypeStatus:
		return nil, expectStatus(res, op)

	default:
		return nil, errProtocol("unexpected packet type %d in response to %s", res.typ, op)
	}
}

// expectOneName decodes a NAME reply and enforces that it carries exactly
// one entry, per REALPATH/READLINK's contract.
func expectOneName(res result, op string) (string, error) {
	switch res.typ {
	case sshfx.PacketTypeName:
		var p sshfx.NamePacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return "", err
		}
		if len(p.Entries) != 1 {
			return "", errProtocol("%s returned %d names, expected exactly 1", op, len(p.Entries))
		}
		return p.Entries[0].Filename, nil

	case sshfx.PacketTypeStatus:
		return "", expectStatus(res, op)

	default:
		return "", errProtocol("unexpected packet type %d in response to %s", res.typ, op)
	}
}

func expectName(res result, op string) ([]*sshfx.NameEntry, error) {
	switch res.typ {
	case sshfx.PacketTypeName:
		var p sshfx.NamePacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return nil, err
		}
		return p.Entries, nil

	case sshfx.PacketTypeStatus:
		return nil, expectStatus(res, op)

	default:
		return nil, errProtocol("unexpected packet type %d in response to %s", res.typ, op)
	}
}

// realpath resolves path server-side to a canonical absolute path.
func (s *Session) realpath(path string) (string, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.RealpathPacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return "", err
	}

	return expectOneName(res, "REALPATH")
}

// openHandle issues OPEN with the given flags and attributes.
func (s *Session) openHandle(path string, pflags uint32, attrs sshfx.Attributes) (string, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.OpenPacket{RequestID: id, Filename: path, PFlags: pflags, Attrs: attrs}
		return p.MarshalPacket()
	})
	if err != nil {
		return "", err
	}

	return expectHandle(res, "OPEN")
}

// opendirHandle issues OPENDIR.
func (s *Session) opendirHandle(path string) (string, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.OpendirPacket{RequestID: id, Path: path}
		return p.MarshalPacket()
	})
	if err != nil {
		return "", err
	}

	return expectHandle(res, "OPENDIR")
}

// closeHandle issues CLOSE.
func (s *Session) closeHandle(handle string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.ClosePacket{RequestID: id, Handle: handle}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "CLOSE")
}

func (s *Session) mkdir(path string, attrs sshfx.Attributes) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.MkdirPacket{RequestID: id, Path: path, Attrs: attrs}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "MKDIR")
}

func (s *Session) rmdir(path string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.RmdirPacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "RMDIR")
}

func (s *Session) remove(path string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.RemovePacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "REMOVE")
}

func (s *Session) rename(oldpath, newpath string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.RenamePacket{RequestID: id, Oldpath: oldpath, Newpath: newpath}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "RENAME")
}

// posixRename issues the posix-rename@openssh.com extension, which the
// caller must have already confirmed via hasExtension.
func (s *Session) posixRename(oldpath, newpath string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &openssh.PosixRenameExtendedPacket{Oldpath: oldpath, Newpath: newpath}
		return p.MarshalPacket(id)
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "posix-rename@openssh.com")
}

func (s *Session) stat(path string) (*sshfx.Attributes, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.StatPacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return nil, err
	}

	return expectAttrs(res, "STAT")
}

func (s *Session) lstat(path string) (*sshfx.Attributes, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.LstatPacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return nil, err
	}

	return expectAttrs(res, "LSTAT")
}

func (s *Session) fstat(handle string) (*sshfx.Attributes, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.FstatPacket{RequestID: id, Handle: handle}
		return p.MarshalPacket()
	})
	if err != nil {
		return nil, err
	}

	return expectAttrs(res, "FSTAT")
}

func (s *Session) setstat(path string, attrs sshfx.Attributes) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.SetstatPacket{RequestID: id, Path: path, Attrs: attrs}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "SETSTAT")
}

func (s *Session) fsetstat(handle string, attrs sshfx.Attributes) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.FsetstatPacket{RequestID: id, Handle: handle, Attrs: attrs}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "FSETSTAT")
}

func (s *Session) readdir(handle string) ([]*sshfx.NameEntry, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.ReaddirPacket{RequestID: id, Handle: handle}
		return p.MarshalPacket()
	})
	if err != nil {
		return nil, err
	}

	return expectName(res, "READDIR")
}

func (s *Session) symlink(target, link string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		// See sshfx.SymlinkPacket's doc comment: targetpath/linkpath order is
		// historically reversed on the wire.
		p := &sshfx.SymlinkPacket{RequestID: id, Linkpath: link, Targetpath: target}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "SYMLINK")
}

func (s *Session) readlink(path string) (string, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := new(sshfx.ReadlinkPacket)
		p.RequestID, p.Path = id, path
		return p.MarshalPacket()
	})
	if err != nil {
		return "", err
	}

	return expectOneName(res, "READLINK")
}

func (s *Session) statvfs(path string) (*openssh.StatVFS, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &openssh.StatVFSExtendedPacket{Path: path}
		return p.MarshalPacket(id)
	})
	if err != nil {
		return nil, err
	}

	switch res.typ {
	case sshfx.PacketTypeExtendedReply:
		var p sshfx.ExtendedReplyPacket
		v := new(openssh.StatVFS)
		p.Data = v
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return nil, err
		}
		return v, nil

	case sshfx.PacketTypeStatus:
		return nil, expectStatus(res, "statvfs@openssh.com")

	default:
		return nil, errProtocol("unexpected packet type %d in response to statvfs@openssh.com", res.typ)
	}
}

// fsync issues the fsync@openssh.com extension, which the caller must have
// already confirmed via hasExtension.
func (s *Session) fsync(handle string) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &openssh.FSyncExtendedPacket{Handle: handle}
		return p.MarshalPacket(id)
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "fsync@openssh.com")
}

// read issues a single READ for up to len(buf) bytes at offset off, copying
// the returned data into buf and returning the number of bytes copied.
// io.EOF is returned (with n==0) when the server reports end of file.
func (s *Session) read(handle string, off uint64, buf []byte) (int, error) {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.ReadPacket{RequestID: id, Handle: handle, Offset: off, Length: uint32(len(buf))}
		return p.MarshalPacket()
	})
	if err != nil {
		return 0, err
	}

	return decodeReadResult(res, buf)
}

// decodeReadResult implements classifyReadResult's DATA/STATUS half: it is
// shared between the single-shot read above and the pipelined download
// engine's per-chunk response handling.
func decodeReadResult(res result, buf []byte) (int, error) {
	switch res.typ {
	case sshfx.PacketTypeData:
		var p sshfx.DataPacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return 0, err
		}
		if len(p.Data) > len(buf) {
			return 0, errProtocol("server returned %d bytes for a %d-byte READ", len(p.Data), len(buf))
		}
		return copy(buf, p.Data), nil

	case sshfx.PacketTypeStatus:
		var p sshfx.StatusPacket
		if err := p.UnmarshalPacketBody(res.buf); err != nil {
			return 0, err
		}
		if p.StatusCode == sshfx.StatusEOF {
			return 0, errEOF
		}
		return 0, statusToError(&p)

	default:
		return 0, errProtocol("unexpected packet type %d in response to READ", res.typ)
	}
}

// write issues a single WRITE of data at offset off.
func (s *Session) write(handle string, off uint64, data []byte) error {
	res, err := s.roundTrip(func(id uint32) (header, payload []byte, err error) {
		p := &sshfx.WritePacket{RequestID: id, Handle: handle, Offset: off, Data: data}
		return p.MarshalPacket()
	})
	if err != nil {
		return err
	}

	return expectStatus(res, "WRITE")
}
