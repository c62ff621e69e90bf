package sftp

import (
	"encoding/binary"
	"io"
)

// defaultMaxPacketSize is the block size this client advertises absent an
// explicit MaxPacketSize option; it matches the reference client's default.
const defaultMaxPacketSize = 32768

// maxPacketOverhead is the header room this client allows an incoming frame
// over its own negotiated block size, guarding against a server advertising
// an unreasonably large frame length (see NewSession's MaxPacketSize option
// and transport.maxRecv).
const maxPacketOverhead = 256 * 1024

// transport frames packets over an arbitrary byte stream: each packet is
// sent as a 4-byte big-endian length prefix followed by that many bytes of
// body, and received the same way. It performs no interpretation of the
// body beyond sizing the read.
//
// transport is not safe for concurrent use by multiple goroutines on the
// send side, nor on the recv side; the session serializes sends behind its
// own mutex and only the receive-loop goroutine ever calls recv.
type transport struct {
	r io.Reader
	w io.Writer
	c io.Closer

	maxRecv int
}

func newTransport(rw io.ReadWriteCloser, maxRecv int) *transport {
	if maxRecv <= 0 {
		maxRecv = defaultMaxPacketSize + maxPacketOverhead
	}
	return &transport{r: rw, w: rw, c: rw, maxRecv: maxRecv}
}

// send writes one framed packet: the body's length, big-endian, followed by
// the body itself. body must already include the packet type and any
// request ID as its leading bytes.
func (t *transport) send(body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := t.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := t.w.Write(body); err != nil {
		return err
	}
	return nil
}

// recv reads one framed packet and returns its body. A declared length
// exceeding maxRecv is rejected as a protocol error without allocating a
// buffer of that size.
func (t *transport) recv() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(t.r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) < 0 || n > uint32(t.maxRecv) {
		return nil, errProtocol("received packet length %d exceeds maximum of %d", n, t.maxRecv)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(t.r, body); err != nil {
		return nil, err
	}

	return body, nil
}

func (t *transport) Close() error {
	if t.c != nil {
		return t.c.Close()
	}
	return nil
}
