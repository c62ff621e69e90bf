package sftp

import (
	"fmt"
	"io"
	"log"
	"sync"

	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
)

// protocolVersion is the only SFTP version this client speaks; a server
// advertising a higher version without downgrading is a fatal handshake
// error.
const protocolVersion = 3

// result is what the receive loop delivers to a blocked caller: either a
// freshly decoded response positioned after its type+ID, or a terminal
// error (a transport failure, or the session closing).
type result struct {
	typ sshfx.PacketType
	buf *sshfx.Buffer
	err error
}

// Option configures a Session at construction time.
type Option func(*Session) error

// MaxPacketSize caps the data length of each READ and WRITE this client
// issues, except those of the pipelined download engine, whose READs are
// always downloadBlockSize; it is also the basis for the transport's
// incoming-frame ceiling.
func MaxPacketSize(n int) Option {
	return func(s *Session) error {
		if n < 512 {
			return fmt.Errorf("sftp: max packet size must be at least 512, got %d", n)
		}
		s.maxPacket = n
		return nil
	}
}

// MaxConcurrentRequests bounds how many requests the transfer engine keeps
// in flight at once; it does not limit direct Component D callers.
func MaxConcurrentRequests(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("sftp: max concurrent requests must be at least 1, got %d", n)
		}
		s.maxConcurrentRequests = n
		return nil
	}
}

// UseConcurrentReads enables the pipelined download engine for *File.Read.
// Disabled, Read issues one request at a time. *File.WriteTo always uses
// the pipelined engine, whatever this is set to.
func UseConcurrentReads(v bool) Option {
	return func(s *Session) error {
		s.useConcurrentReads = v
		return nil
	}
}

// UseConcurrentWrites enables the pipelined upload engine for *File.Write.
// *File.ReadFrom always uses the pipelined engine, whatever this is set to.
func UseConcurrentWrites(v bool) Option {
	return func(s *Session) error {
		s.useConcurrentWrites = v
		return nil
	}
}

// Session is a single SFTP client session over one transport. It owns a
// request table and a receive-loop goroutine; independent requests may be
// issued concurrently from multiple goroutines, but a single *File's
// streaming methods are not themselves safe for concurrent use.
type Session struct {
	tr    *transport
	table requestTable

	maxPacket             int
	maxConcurrentRequests int
	useConcurrentReads    bool
	useConcurrentWrites   bool

	logger *log.Logger

	serverVersion    uint32
	serverExtensions map[string]string

	sendMu sync.Mutex

	closeOnce sync.Once
	closeCh   chan struct{}

	mu       sync.Mutex
	closeErr error

	wg sync.WaitGroup
}

// NewSession negotiates an SFTP session over rw and starts its receive
// loop. Construction performs the INIT/VERSION handshake synchronously;
// the receive loop is only started afterward.
func NewSession(rw io.ReadWriteCloser, opts ...Option) (*Session, error) {
	s := &Session{
		maxPacket:             defaultMaxPacketSize,
		maxConcurrentRequests: defaultWindowSize / downloadBlockSize,
		closeCh:               make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.tr = newTransport(rw, s.maxPacket+maxPacketOverhead)

	if err := s.handshake(); err != nil {
		s.tr.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.receiveLoop()

	return s, nil
}

// SetLogger installs a logger used for non-fatal diagnostics (e.g. a
// discarded reply whose request ID matched no outstanding request). It is never required for
// correct operation.
func (s *Session) SetLogger(l *log.Logger) {
	s.logger = l
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// handshake performs the INIT/VERSION exchange on the caller's own
// goroutine, before the receive loop exists.
func (s *Session) handshake() error {
	init := &sshfx.InitPacket{Version: protocolVersion}

	header, payload, err := init.MarshalPacket()
	if err != nil {
		return err
	}
	// header begins with the frame length MarshalPacket wrote; tr.send
	// writes its own, so only the body after it is passed on.
	if err := s.tr.send(append(header[4:], payload...)); err != nil {
		return fmt.Errorf("sftp: INIT send failed: %w", err)
	}

	body, err := s.tr.recv()
	if err != nil {
		return fmt.Errorf("sftp: VERSION recv failed: %w", err)
	}

	buf := sshfx.NewBuffer(body)
	typ, err := buf.ConsumeUint8()
	if err != nil {
		return err
	}
	if sshfx.PacketType(typ) != sshfx.PacketTypeVersion {
		return errProtocol("expected VERSION, got packet type %d", typ)
	}

	var version sshfx.VersionPacket
	if err := version.UnmarshalPacketBody(buf); err != nil {
		return fmt.Errorf("sftp: malformed VERSION: %w", err)
	}

	if version.Version > protocolVersion {
		return errProtocol("server version %d is newer than the %d this client speaks", version.Version, protocolVersion)
	}

	s.serverVersion = version.Version
	s.serverExtensions = make(map[string]string, len(version.Extensions))
	for _, ext := range version.Extensions {
		s.serverExtensions[ext.Name] = ext.Data
	}

	return nil
}

// hasExtension reports whether the server advertised the named extension in
// its VERSION reply.
func (s *Session) hasExtension(name string) bool {
	_, ok := s.serverExtensions[name]
	return ok
}

// newRequest allocates a request ID from the table without yet registering
// it; the caller must call register after a successful send, or release on
// failure.
func (s *Session) newRequest() *request {
	return s.table.allocate()
}

func (s *Session) register(r *request) {
	s.table.register(r)
}

func (s *Session) release(r *request) {
	s.table.remove(r)
}

// send serializes header+payload onto the wire. Multiple goroutines may
// call send concurrently; writes to the underlying transport are
// serialized by sendMu so that one request's bytes are never interleaved
// with another's.
func (s *Session) send(header, payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	// header begins with the frame length MarshalPacket wrote; tr.send
	// writes its own, so only the body after it is passed on.
	body := header[4:]
	if payload == nil {
		return s.tr.send(body)
	}
	return s.tr.send(append(body, payload...))
}

// wait blocks until r's response arrives, or the session closes.
func (s *Session) wait(r *request) result {
	select {
	case res := <-r.resp:
		return res
	case <-s.closeCh:
		return result{err: s.currentCloseErr()}
	}
}

func (s *Session) currentCloseErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeErr != nil {
		return s.closeErr
	}
	return errProtocol("session closed")
}

// receiveLoop is the only goroutine that calls findRequest, and the only
// one that delivers to a request's response channel; callers allocate,
// register and release their own requests under the table's mutex.
func (s *Session) receiveLoop() {
	defer s.wg.Done()

	for {
		body, err := s.tr.recv()
		if err != nil {
			s.shutdown(fmt.Errorf("sftp: transport failed: %w", err))
			return
		}

		buf := sshfx.NewBuffer(body)

		typ, err := buf.ConsumeUint8()
		if err != nil {
			s.shutdown(fmt.Errorf("sftp: malformed packet header: %w", err))
			return
		}

		id, err := buf.ConsumeUint32()
		if err != nil {
			s.shutdown(fmt.Errorf("sftp: malformed packet header: %w", err))
			return
		}

		req, err := s.table.findRequest(id)
		if err != nil {
			// request ID mismatch: discard the packet and keep serving the
			// rest of the session.
			s.logf("sftp: discarding packet with unmatched request ID %d", id)
			continue
		}

		req.resp <- result{typ: sshfx.PacketType(typ), buf: buf}
	}
}

// shutdown marks the session dead, wakes every pending and future caller
// with err, and closes the transport.
func (s *Session) shutdown(err error) {
	s.mu.Lock()
	if s.closeErr == nil {
		s.closeErr = err
	}
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		close(s.closeCh)
	})

	for _, r := range s.table.drain() {
		select {
		case r.resp <- result{err: err}:
		default:
		}
	}

	s.tr.Close()
}

// Close terminates the session: it stops the receive loop (by closing the
// underlying transport) and wakes every pending caller with a "session
// closed" error.
func (s *Session) Close() error {
	s.shutdown(errProtocol("session closed"))
	s.wg.Wait()
	return nil
}
