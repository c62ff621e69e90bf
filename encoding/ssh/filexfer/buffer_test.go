package filexfer

import (
	"bytes"
	"testing"
)

func TestBufferUint8RoundTrip(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint8(0x42)

	got, err := NewBuffer(buf.Bytes()).ConsumeUint8()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if got != 0x42 {
		t.Errorf("ConsumeUint8() = %#x, want %#x", got, 0x42)
	}
}

func TestBufferUint32RoundTrip(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint32(0xdeadbeef)

	got, err := NewBuffer(buf.Bytes()).ConsumeUint32()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if got != 0xdeadbeef {
		t.Errorf("ConsumeUint32() = %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestBufferUint64RoundTrip(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendUint64(0x0123456789abcdef)

	got, err := NewBuffer(buf.Bytes()).ConsumeUint64()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if got != 0x0123456789abcdef {
		t.Errorf("ConsumeUint64() = %#x, want %#x", got, 0x0123456789abcdef)
	}
}

func TestBufferStringRoundTrip(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendString("hello, sftp")

	got, err := NewBuffer(buf.Bytes()).ConsumeString()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if got != "hello, sftp" {
		t.Errorf("ConsumeString() = %q, want %q", got, "hello, sftp")
	}
}

func TestBufferByteSliceAliasesUnderlying(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendByteSlice([]byte("payload"))

	data := buf.Bytes()
	got, err := NewBuffer(data).ConsumeByteSlice()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("ConsumeByteSlice() = %q, want %q", got, "payload")
	}

	// got must share storage with data: a change to the encoded payload's
	// first byte shows through the consumed slice.
	data[4] = 'P'
	if got[0] != 'P' {
		t.Errorf("ConsumeByteSlice() = %q after changing the underlying buffer, want it to alias it", got)
	}
}

// TestBufferTruncation checks that decoding any truncated prefix of a valid
// encoded value yields a bounded ErrShortPacket, never an out-of-bounds read
// or panic.
func TestBufferTruncation(t *testing.T) {
	full := NewBuffer(nil)
	full.AppendString("a string long enough to exercise length-prefixed truncation")
	full.AppendUint64(0x1122334455667788)
	data := full.Bytes()

	for k := 0; k < len(data); k++ {
		prefix := append([]byte(nil), data[:k]...)

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("decoding %d-byte prefix panicked: %v", k, r)
				}
			}()

			b := NewBuffer(prefix)
			if _, err := b.ConsumeString(); err != nil {
				if err != ErrShortPacket {
					t.Errorf("prefix len=%d: ConsumeString() error = %v, want ErrShortPacket", k, err)
				}
				return
			}

			// The string decoded fully out of this short prefix (k was large
			// enough); continuing to consume the uint64 must still be
			// bounds-checked the same way.
			if _, err := b.ConsumeUint64(); err != nil && err != ErrShortPacket {
				t.Errorf("prefix len=%d: ConsumeUint64() error = %v, want ErrShortPacket", k, err)
			}
		}()
	}
}

func TestBufferConsumeByteSliceRejectsOversizedLength(t *testing.T) {
	b := NewBuffer(nil)
	b.AppendUint32(0xffffffff) // claims 4 billion bytes, but buffer has none

	if _, err := b.ConsumeByteSlice(); err != ErrShortPacket {
		t.Errorf("ConsumeByteSlice() error = %v, want ErrShortPacket", err)
	}
}

func TestBufferPutLengthOnEmptyBuffer(t *testing.T) {
	b := NewBuffer(nil)
	b.PutLength(5)

	if got := b.Bytes(); len(got) != 4 {
		t.Fatalf("PutLength on empty buffer produced %d bytes, want 4", len(got))
	}

	got, err := NewBuffer(b.Bytes()).ConsumeUint32()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if got != 5 {
		t.Errorf("PutLength round-trip = %d, want 5", got)
	}
}
