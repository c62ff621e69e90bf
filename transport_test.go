package sftp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn pairs an in-memory buffer as a ReadWriteCloser for transport tests.
type pipeConn struct {
	*bytes.Buffer
}

func (pipeConn) Close() error { return nil }

func TestTransportSendRecvRoundTrip(t *testing.T) {
	buf := pipeConn{new(bytes.Buffer)}
	tr := newTransport(buf, 0)

	require.NoError(t, tr.send([]byte{1, 2, 3, 4, 5}))

	got, err := tr.recv()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

func TestTransportRecvRejectsOversizedLength(t *testing.T) {
	buf := pipeConn{new(bytes.Buffer)}
	tr := newTransport(buf, 1024)

	// Hand-craft a frame header declaring a body far larger than maxRecv.
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff})

	_, err := tr.recv()
	require.Error(t, err)
	assert.Equal(t, 0, buf.Len(), "no body bytes should have been consumed past the header")
}

func TestTransportRecvTruncatedHeaderIsError(t *testing.T) {
	buf := pipeConn{new(bytes.Buffer)}
	tr := newTransport(buf, 0)

	buf.Write([]byte{0, 0})

	_, err := tr.recv()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTransportRecvTruncatedBodyIsError(t *testing.T) {
	buf := pipeConn{new(bytes.Buffer)}
	tr := newTransport(buf, 0)

	buf.Write([]byte{0, 0, 0, 5, 1, 2})

	_, err := tr.recv()
	require.Error(t, err)
}
