package filexfer

import "testing"

// TestAttributesRoundTrip checks that decode(encode(a)) == a in the bits
// selected by a.Flags, for every combination of the four sendable attribute
// flags.
func TestAttributesRoundTrip(t *testing.T) {
	base := Attributes{
		Size:        1 << 40,
		UID:         1000,
		GID:         1000,
		Permissions: 0640,
		ATime:       1700000000,
		MTime:       1700000042,
	}

	masks := []uint32{
		0,
		AttrSize,
		AttrUIDGID,
		AttrPermissions,
		AttrACModTime,
		AttrSize | AttrUIDGID,
		AttrSize | AttrPermissions,
		AttrSize | AttrACModTime,
		AttrUIDGID | AttrPermissions,
		AttrUIDGID | AttrACModTime,
		AttrPermissions | AttrACModTime,
		AttrSize | AttrUIDGID | AttrPermissions,
		AttrSize | AttrUIDGID | AttrACModTime,
		AttrSize | AttrPermissions | AttrACModTime,
		AttrUIDGID | AttrPermissions | AttrACModTime,
		AttrSize | AttrUIDGID | AttrPermissions | AttrACModTime,
	}

	for _, mask := range masks {
		a := base
		a.Flags = mask

		data, err := a.MarshalBinary()
		if err != nil {
			t.Fatalf("mask %#x: MarshalBinary() error = %v", mask, err)
		}

		var got Attributes
		if err := got.UnmarshalBinary(data); err != nil {
			t.Fatalf("mask %#x: UnmarshalBinary() error = %v", mask, err)
		}

		if got.Flags != mask {
			t.Errorf("mask %#x: Flags = %#x, want %#x", mask, got.Flags, mask)
		}

		if mask&AttrSize != 0 && got.Size != base.Size {
			t.Errorf("mask %#x: Size = %d, want %d", mask, got.Size, base.Size)
		}
		if mask&AttrUIDGID != 0 {
			if got.UID != base.UID || got.GID != base.GID {
				t.Errorf("mask %#x: UID/GID = %d/%d, want %d/%d", mask, got.UID, got.GID, base.UID, base.GID)
			}
		}
		if mask&AttrPermissions != 0 && got.Permissions != base.Permissions {
			t.Errorf("mask %#x: Permissions = %#o, want %#o", mask, got.Permissions, base.Permissions)
		}
		if mask&AttrACModTime != 0 {
			if got.ATime != base.ATime || got.MTime != base.MTime {
				t.Errorf("mask %#x: ATime/MTime = %d/%d, want %d/%d", mask, got.ATime, got.MTime, base.ATime, base.MTime)
			}
		}
	}
}

// TestAttributesNeverSendExtended checks that an Attributes with AttrExtended
// set and ExtendedAttributes populated is marshaled without the extended
// payload and without the AttrExtended bit in the wire flags: extended
// attributes are read on receive but never written on send.
func TestAttributesNeverSendExtended(t *testing.T) {
	a := Attributes{
		Flags: AttrSize | AttrExtended,
		Size:  42,
		ExtendedAttributes: []ExtendedAttribute{
			{Type: "vendor-id@example.com", Data: "payload"},
		},
	}

	wantLen := 4 + 8 // flags + size, nothing else
	if got := a.Len(); got != wantLen {
		t.Fatalf("Len() = %d, want %d", got, wantLen)
	}

	data, err := a.MarshalBinary()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(data) != wantLen {
		t.Fatalf("MarshalBinary() produced %d bytes, want %d", len(data), wantLen)
	}

	var got Attributes
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatal("unexpected error:", err)
	}

	if got.Flags&AttrExtended != 0 {
		t.Errorf("round-tripped Flags = %#x has AttrExtended bit set, want it masked off the wire", got.Flags)
	}
	if got.ExtendedAttributes != nil {
		t.Errorf("round-tripped ExtendedAttributes = %v, want nil (never sent)", got.ExtendedAttributes)
	}
	if got.Size != 42 {
		t.Errorf("round-tripped Size = %d, want 42", got.Size)
	}
}

// TestAttributesUnmarshalReadsExtendedOnReceive checks that the decode path
// still understands a peer that does send extended attributes, even though
// this client never originates them.
func TestAttributesUnmarshalReadsExtendedOnReceive(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint32(AttrExtended)
	buf.AppendUint32(1) // count
	ext := ExtendedAttribute{Type: "foo", Data: "bar"}
	ext.MarshalInto(buf)

	var a Attributes
	if err := a.UnmarshalFrom(NewBuffer(buf.Bytes())); err != nil {
		t.Fatal("unexpected error:", err)
	}

	if len(a.ExtendedAttributes) != 1 {
		t.Fatalf("ExtendedAttributes = %v, want 1 entry", a.ExtendedAttributes)
	}
	if a.ExtendedAttributes[0] != ext {
		t.Errorf("ExtendedAttributes[0] = %+v, want %+v", a.ExtendedAttributes[0], ext)
	}
}

// TestAttributesUnmarshalRejectsHostileExtendedCount mirrors
// TestNamePacketHostileCount for the extended-attributes count embedded in
// an Attributes record: a peer claiming far more entries than the packet
// could possibly hold must be rejected before any allocation is sized off
// the claimed count.
func TestAttributesUnmarshalRejectsHostileExtendedCount(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint32(AttrExtended)
	buf.AppendUint32(1000000) // count, wildly exceeding the remaining bytes

	var a Attributes
	if err := a.UnmarshalFrom(NewBuffer(buf.Bytes())); err == nil {
		t.Fatal("expected an error for a hostile extended-attribute count, got nil")
	}
	if a.ExtendedAttributes != nil {
		t.Errorf("ExtendedAttributes = %v, want nil: no storage should be allocated on rejection", a.ExtendedAttributes)
	}
}

func TestAttributesZeroFlagsShortCircuit(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint32(0)

	var a Attributes
	if err := a.UnmarshalFrom(NewBuffer(buf.Bytes())); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if a.Flags != 0 || a.Size != 0 || a.UID != 0 || a.GID != 0 ||
		a.Permissions != 0 || a.ATime != 0 || a.MTime != 0 || a.ExtendedAttributes != nil {
		t.Errorf("UnmarshalFrom with zero flags = %+v, want zero value", a)
	}
}

func TestAttributesTruncatedFails(t *testing.T) {
	a := Attributes{
		Flags:       AttrSize | AttrUIDGID | AttrPermissions | AttrACModTime,
		Size:        1,
		UID:         2,
		GID:         3,
		Permissions: 4,
		ATime:       5,
		MTime:       6,
	}

	data, err := a.MarshalBinary()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	for k := 0; k < len(data); k++ {
		var got Attributes
		err := got.UnmarshalBinary(data[:k])
		if err == nil {
			t.Errorf("UnmarshalBinary(%d-byte prefix) succeeded, want a bounded error", k)
		}
	}
}
