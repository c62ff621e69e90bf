package filexfer

// pathPacket is the common shape of every request carrying a single path: string(path).
type pathPacket struct {
	RequestID uint32
	Path      string
}

func (p *pathPacket) marshal(typ PacketType) (header, payload []byte, err error) {
	size := 4 + len(p.Path)

	b := NewMarshalBuffer(typ, p.RequestID, size)
	b.AppendString(p.Path)

	return b.Packet(payload)
}

func (p *pathPacket) unmarshalBody(buf *Buffer) (err error) {
	p.Path, err = buf.ConsumeString()
	return err
}

func (p *pathPacket) unmarshalBinary(data []byte) (err error) {
	buf := NewBuffer(data)

	if p.RequestID, err = buf.ConsumeUint32(); err != nil {
		return err
	}

	return p.unmarshalBody(buf)
}

// LstatPacket defines the SSH_FXP_LSTAT packet.
type LstatPacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *LstatPacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeLstat)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *LstatPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
// It is assumed that the uint32(request-id) has already been consumed.
func (p *LstatPacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *LstatPacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// StatPacket defines the SSH_FXP_STAT packet.
type StatPacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *StatPacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeStat)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *StatPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *StatPacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *StatPacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// RemovePacket defines the SSH_FXP_REMOVE packet.
type RemovePacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *RemovePacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeRemove)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *RemovePacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *RemovePacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *RemovePacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// MkdirPacket defines the SSH_FXP_MKDIR packet.
type MkdirPacket struct {
	RequestID uint32
	Path      string
	Attrs     Attributes
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *MkdirPacket) MarshalPacket() (header, payload []byte, err error) {
	size := 4 + len(p.Path) + p.Attrs.Len()

	b := NewMarshalBuffer(PacketTypeMkdir, p.RequestID, size)
	b.AppendString(p.Path)
	p.Attrs.MarshalInto(b)

	return b.Packet(payload)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *MkdirPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *MkdirPacket) UnmarshalPacketBody(buf *Buffer) (err error) {
	if p.Path, err = buf.ConsumeString(); err != nil {
		return err
	}

	return p.Attrs.UnmarshalFrom(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *MkdirPacket) UnmarshalBinary(data []byte) (err error) {
	buf := NewBuffer(data)

	if p.RequestID, err = buf.ConsumeUint32(); err != nil {
		return err
	}

	return p.UnmarshalPacketBody(buf)
}

// RmdirPacket defines the SSH_FXP_RMDIR packet.
type RmdirPacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *RmdirPacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeRmdir)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *RmdirPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *RmdirPacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *RmdirPacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// RealpathPacket defines the SSH_FXP_REALPATH packet.
type RealpathPacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *RealpathPacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeRealpath)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *RealpathPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *RealpathPacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *RealpathPacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// ReadlinkPacket defines the SSH_FXP_READLINK packet.
type ReadlinkPacket struct {
	pathPacket
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *ReadlinkPacket) MarshalPacket() (header, payload []byte, err error) {
	return p.marshal(PacketTypeReadlink)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *ReadlinkPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *ReadlinkPacket) UnmarshalPacketBody(buf *Buffer) error {
	return p.unmarshalBody(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *ReadlinkPacket) UnmarshalBinary(data []byte) error {
	return p.unmarshalBinary(data)
}

// SetstatPacket defines the SSH_FXP_SETSTAT packet.
type SetstatPacket struct {
	RequestID uint32
	Path      string
	Attrs     Attributes
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *SetstatPacket) MarshalPacket() (header, payload []byte, err error) {
	size := 4 + len(p.Path) + p.Attrs.Len()

	b := NewMarshalBuffer(PacketTypeSetstat, p.RequestID, size)
	b.AppendString(p.Path)
	p.Attrs.MarshalInto(b)

	return b.Packet(payload)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *SetstatPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *SetstatPacket) UnmarshalPacketBody(buf *Buffer) (err error) {
	if p.Path, err = buf.ConsumeString(); err != nil {
		return err
	}

	return p.Attrs.UnmarshalFrom(buf)
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *SetstatPacket) UnmarshalBinary(data []byte) (err error) {
	buf := NewBuffer(data)

	if p.RequestID, err = buf.ConsumeUint32(); err != nil {
		return err
	}

	return p.UnmarshalPacketBody(buf)
}

// RenamePacket defines the SSH_FXP_RENAME packet.
type RenamePacket struct {
	RequestID uint32
	Oldpath   string
	Newpath   string
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *RenamePacket) MarshalPacket() (header, payload []byte, err error) {
	size := 4 + len(p.Oldpath) + 4 + len(p.Newpath)

	b := NewMarshalBuffer(PacketTypeRename, p.RequestID, size)
	b.AppendString(p.Oldpath)
	b.AppendString(p.Newpath)

	return b.Packet(payload)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *RenamePacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *RenamePacket) UnmarshalPacketBody(buf *Buffer) (err error) {
	if p.Oldpath, err = buf.ConsumeString(); err != nil {
		return err
	}

	p.Newpath, err = buf.ConsumeString()
	return err
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *RenamePacket) UnmarshalBinary(data []byte) (err error) {
	buf := NewBuffer(data)

	if p.RequestID, err = buf.ConsumeUint32(); err != nil {
		return err
	}

	return p.UnmarshalPacketBody(buf)
}

// SymlinkPacket defines the SSH_FXP_SYMLINK packet.
//
// The wire arguments are historically reversed from what the field names
// suggest: the linkpath is sent second and the targetpath first. This
// module preserves that reversal for interoperability with servers
// written against that order.
type SymlinkPacket struct {
	RequestID  uint32
	Linkpath   string
	Targetpath string
}

// MarshalPacket returns p as a two-part binary encoding of p.
func (p *SymlinkPacket) MarshalPacket() (header, payload []byte, err error) {
	size := 4 + len(p.Targetpath) + 4 + len(p.Linkpath)

	b := NewMarshalBuffer(PacketTypeSymlink, p.RequestID, size)
	b.AppendString(p.Targetpath)
	b.AppendString(p.Linkpath)

	return b.Packet(payload)
}

// MarshalBinary returns p as the binary encoding of p.
func (p *SymlinkPacket) MarshalBinary() ([]byte, error) {
	return ComposePacket(p.MarshalPacket())
}

// UnmarshalPacketBody unmarshals the packet body from the given Buffer.
func (p *SymlinkPacket) UnmarshalPacketBody(buf *Buffer) (err error) {
	if p.Targetpath, err = buf.ConsumeString(); err != nil {
		return err
	}

	p.Linkpath, err = buf.ConsumeString()
	return err
}

// UnmarshalBinary unmarshals a full raw packet out of the given data.
func (p *SymlinkPacket) UnmarshalBinary(data []byte) (err error) {
	buf := NewBuffer(data)

	if p.RequestID, err = buf.ConsumeUint32(); err != nil {
		return err
	}

	return p.UnmarshalPacketBody(buf)
}
