package filexfer

import (
	"reflect"
	"testing"
)

func roundTripPathPacket(t *testing.T, marshal func() ([]byte, error), unmarshal func([]byte) error) {
	t.Helper()

	data, err := marshal()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	buf := NewBuffer(data)
	if _, err := buf.ConsumeUint32(); err != nil { // length
		t.Fatal(err)
	}
	if _, err := buf.ConsumeUint8(); err != nil { // type
		t.Fatal(err)
	}

	if err := unmarshal(buf.Bytes()); err != nil {
		t.Fatal("unexpected error:", err)
	}
}

func TestLstatPacketRoundTrip(t *testing.T) {
	p := &LstatPacket{pathPacket{RequestID: 1, Path: "/a/b"}}
	var got LstatPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path || got.RequestID != p.RequestID {
		t.Errorf("round-trip = %+v, want %+v", got, *p)
	}
}

func TestStatPacketRoundTrip(t *testing.T) {
	p := &StatPacket{pathPacket{RequestID: 2, Path: "/x"}}
	var got StatPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path || got.RequestID != p.RequestID {
		t.Errorf("round-trip = %+v, want %+v", got, *p)
	}
}

func TestRemovePacketRoundTrip(t *testing.T) {
	p := &RemovePacket{pathPacket{RequestID: 3, Path: "/tmp/gone"}}
	var got RemovePacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path {
		t.Errorf("Path = %q, want %q", got.Path, p.Path)
	}
}

func TestRealpathPacketRoundTrip(t *testing.T) {
	p := &RealpathPacket{pathPacket{RequestID: 256, Path: "."}}
	var got RealpathPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != "." {
		t.Errorf("Path = %q, want %q", got.Path, ".")
	}
}

func TestReadlinkPacketRoundTrip(t *testing.T) {
	p := &ReadlinkPacket{pathPacket{RequestID: 4, Path: "/link"}}
	var got ReadlinkPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path {
		t.Errorf("Path = %q, want %q", got.Path, p.Path)
	}
}

func TestRmdirPacketRoundTrip(t *testing.T) {
	p := &RmdirPacket{pathPacket{RequestID: 5, Path: "/empty-dir"}}
	var got RmdirPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path {
		t.Errorf("Path = %q, want %q", got.Path, p.Path)
	}
}

func TestMkdirPacketRoundTrip(t *testing.T) {
	p := &MkdirPacket{
		RequestID: 6,
		Path:      "/new-dir",
		Attrs:     Attributes{Flags: AttrPermissions, Permissions: 0755},
	}
	var got MkdirPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path || !reflect.DeepEqual(got.Attrs, p.Attrs) {
		t.Errorf("round-trip = %+v, want %+v", got, *p)
	}
}

func TestSetstatPacketRoundTrip(t *testing.T) {
	p := &SetstatPacket{
		RequestID: 7,
		Path:      "/foo",
		Attrs:     Attributes{Flags: AttrSize, Size: 99},
	}
	var got SetstatPacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Path != p.Path || !reflect.DeepEqual(got.Attrs, p.Attrs) {
		t.Errorf("round-trip = %+v, want %+v", got, *p)
	}
}

func TestRenamePacketRoundTrip(t *testing.T) {
	p := &RenamePacket{RequestID: 8, Oldpath: "/a", Newpath: "/b"}
	var got RenamePacket
	roundTripPathPacket(t, p.MarshalBinary, got.UnmarshalBinary)
	if got.Oldpath != p.Oldpath || got.Newpath != p.Newpath {
		t.Errorf("round-trip = %+v, want %+v", got, *p)
	}
}

// TestSymlinkPacketWireOrderIsReversed pins the historical field-order quirk:
// on the wire, targetpath precedes linkpath even though SymlinkPacket's
// documented field order lists Linkpath first.
func TestSymlinkPacketWireOrderIsReversed(t *testing.T) {
	p := &SymlinkPacket{RequestID: 9, Linkpath: "/link", Targetpath: "/target"}

	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	buf := NewBuffer(data)
	if _, err := buf.ConsumeUint32(); err != nil {
		t.Fatal(err)
	}
	if _, err := buf.ConsumeUint8(); err != nil {
		t.Fatal(err)
	}
	if _, err := buf.ConsumeUint32(); err != nil { // request id
		t.Fatal(err)
	}

	first, err := buf.ConsumeString()
	if err != nil {
		t.Fatal(err)
	}
	if first != p.Targetpath {
		t.Errorf("first string on wire = %q, want targetpath %q", first, p.Targetpath)
	}

	second, err := buf.ConsumeString()
	if err != nil {
		t.Fatal(err)
	}
	if second != p.Linkpath {
		t.Errorf("second string on wire = %q, want linkpath %q", second, p.Linkpath)
	}

	var full SymlinkPacket
	fullData, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	fbuf := NewBuffer(fullData)
	if _, err := fbuf.ConsumeUint32(); err != nil {
		t.Fatal(err)
	}
	if _, err := fbuf.ConsumeUint8(); err != nil {
		t.Fatal(err)
	}
	if err := full.UnmarshalBinary(fbuf.Bytes()); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if full.Linkpath != p.Linkpath || full.Targetpath != p.Targetpath {
		t.Errorf("round-trip = %+v, want %+v", full, *p)
	}
}
