package sftp

import (
	"io"
	"sync"

	"github.com/go-sftp/sftp/internal/pool"
)

// downloadBlockSize is the fixed size of each READ sub-request the download
// engine issues; it matches the block size the reference client pipelines.
const downloadBlockSize = 32 * 1024

// defaultWindowSize bounds how many bytes a transfer keeps in flight at
// once, absent an explicit MaxConcurrentRequests-derived override.
const defaultWindowSize = 1 << 20

// downloadBufPool is shared across every downloadTransfer in the process;
// buffers are always exactly downloadBlockSize, so one pool with that
// cull length serves every caller.
var downloadBufPool = pool.NewSlicePool[[]byte, byte](64, downloadBlockSize)

// readOutcome classifies the result of a single READ, collapsing the two
// ways a server can signal end of file (a zero-length DATA payload, or a
// STATUS carrying SSH_FX_EOF) into one place, per classifyReadResult.
type readOutcome int

const (
	readOK readOutcome = iota
	readEOF
	readErr
)

// classifyReadResult is the single place that decides whether a READ's
// outcome is ordinary data, end of file, or a failure — see the design
// decision to not preserve the reference's two inconsistent EOF paths.
func classifyReadResult(n int, err error) readOutcome {
	if err == io.EOF {
		return readEOF
	}
	if err != nil {
		return readErr
	}
	if n == 0 {
		return readEOF
	}
	return readOK
}

// downloadChunk is one 32KiB sub-request of a pipelined download. Each
// chunk drives its own call to *Session.read on its own goroutine and
// reports its outcome back to the transfer through complete, rather than
// hand-threading bookkeeping through the shared request table's userdata
// slot.
type downloadChunk struct {
	offset uint64
	length int
	buf    []byte
	n      int

	pending bool
	failed  bool // true for both a real error and end-of-file
}

// downloadTransfer pipelines READ sub-requests for one open handle,
// delivering completed blocks to the caller strictly in offset order
// regardless of the order responses actually arrive in.
type downloadTransfer struct {
	s      *Session
	handle string
	window int

	mu         sync.Mutex
	nextOffset uint64
	filesize   int64 // -1 until a short read narrows it
	furthest   uint64
	eof        bool
	err        error
	inflight   int
	queue      []*downloadChunk

	wg     sync.WaitGroup
	notify chan struct{}
}

// newDownloadTransfer seeds a download state at the given starting offset.
func newDownloadTransfer(s *Session, handle string, offset uint64, window int) *downloadTransfer {
	if window <= 0 {
		window = defaultWindowSize
	}

	return &downloadTransfer{
		s:          s,
		handle:     handle,
		window:     window,
		nextOffset: offset,
		filesize:   -1,
		notify:     make(chan struct{}, 1),
	}
}

func (t *downloadTransfer) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// fill queues new sub-requests until the window is full, EOF has been
// observed, or an error has been recorded.
func (t *downloadTransfer) fill() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.inflight+downloadBlockSize <= t.window && !t.eof && t.err == nil {
		c := &downloadChunk{offset: t.nextOffset, length: downloadBlockSize, pending: true}
		t.nextOffset += uint64(downloadBlockSize)
		t.inflight += downloadBlockSize
		t.queue = append(t.queue, c)

		t.wg.Add(1)
		go t.submit(c)
	}
}

func (t *downloadTransfer) submit(c *downloadChunk) {
	defer t.wg.Done()

	buf := downloadBufPool.Get()
	if buf == nil {
		buf = make([]byte, downloadBlockSize)
	}
	buf = buf[:c.length]

	n, err := t.s.read(t.handle, c.offset, buf)

	t.complete(c, buf, n, err)
}

// complete records one chunk's outcome: furthest-offset tracking, monotone
// filesize shrinkage on a short block, and the short-block-not-at-EOF
// anomaly check.
func (t *downloadTransfer) complete(c *downloadChunk, buf []byte, n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight -= c.length
	c.pending = false

	switch classifyReadResult(n, err) {
	case readEOF:
		t.eof = true
		c.failed = true
		downloadBufPool.Put(buf)

	case readErr:
		if t.err == nil {
			t.err = err
		}
		c.failed = true
		downloadBufPool.Put(buf)

	default:
		c.buf = buf
		c.n = n

		if c.offset > t.furthest {
			t.furthest = c.offset
		}

		if n < c.length {
			candidate := int64(c.offset) + int64(n)
			if t.filesize < 0 || candidate < t.filesize {
				t.filesize = candidate
			}
		}

		if t.filesize >= 0 && t.furthest > uint64(t.filesize) {
			t.err = errProtocol("received a short buffer from FXP_READ, but not at EOF")
		}
	}

	t.wake()
}

// xferDownloadData walks the head of the queue, discarding completed
// entries that failed or hit EOF, and reports the first entry that is
// ready to deliver. ok is false when the caller must wait for more
// completions; done is true once no more data will ever arrive.
func (t *downloadTransfer) xferDownloadData() (buf []byte, n int, ok, done bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.queue) > 0 && t.queue[0].failed {
		t.queue = t.queue[1:]
	}

	if len(t.queue) == 0 {
		if t.err != nil {
			return nil, 0, false, true, t.err
		}
		if t.eof && t.inflight == 0 {
			return nil, 0, false, true, nil
		}
		return nil, 0, false, false, nil
	}

	head := t.queue[0]
	if head.pending {
		return nil, 0, false, false, nil
	}

	t.queue = t.queue[1:]
	return head.buf, head.n, true, false, nil
}

// Next blocks until the next block in offset order is ready, the transfer
// is exhausted (io.EOF), or it has failed.
func (t *downloadTransfer) Next() ([]byte, int, error) {
	t.fill()

	for {
		buf, n, ok, done, err := t.xferDownloadData()
		if err != nil {
			return nil, 0, err
		}
		if done {
			return nil, 0, io.EOF
		}
		if ok {
			t.fill()
			return buf, n, nil
		}

		<-t.notify
	}
}

// Release returns a buffer previously returned by Next back to the pool.
func (t *downloadTransfer) Release(buf []byte) {
	if buf != nil {
		downloadBufPool.Put(buf)
	}
}

// Close releases every outstanding sub-request's buffer and waits for
// their goroutines to finish. It must be called regardless of how the
// transfer ended.
func (t *downloadTransfer) Close() {
	t.mu.Lock()
	t.err = errProtocol("download cancelled")
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()

	t.wg.Wait()

	for _, c := range pending {
		if c.buf != nil {
			downloadBufPool.Put(c.buf)
		}
	}
}

// uploadTransfer pipelines WRITE sub-requests for one open handle. Unlike
// the download side it retains no buffers of its own: the caller's slice
// is handed directly to the WRITE packet, whose send may still be reading
// it after Submit returns.
type uploadTransfer struct {
	s      *Session
	handle string
	window int

	mu       sync.Mutex
	inflight int
	err      error
	notify   chan struct{}

	wg sync.WaitGroup
}

func newUploadTransfer(s *Session, handle string, window int) *uploadTransfer {
	if window <= 0 {
		window = defaultWindowSize
	}

	return &uploadTransfer{
		s:      s,
		handle: handle,
		window: window,
		notify: make(chan struct{}, 1),
	}
}

// Submit blocks until there is window for len(data) bytes, then issues a
// WRITE at offset and returns without waiting for its acknowledgement. It
// returns immediately with the transfer's sticky error if one has already
// been recorded.
func (t *uploadTransfer) Submit(offset uint64, data []byte) error {
	t.mu.Lock()
	// An empty window always admits one sub-request, however large, so a
	// single write bigger than the whole window still makes progress.
	for t.inflight > 0 && t.inflight+len(data) > t.window && t.err == nil {
		t.mu.Unlock()
		<-t.notify
		t.mu.Lock()
	}

	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		return err
	}

	t.inflight += len(data)
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		err := t.s.write(t.handle, offset, data)

		t.mu.Lock()
		t.inflight -= len(data)
		if err != nil && t.err == nil {
			t.err = err
		}
		t.mu.Unlock()

		select {
		case t.notify <- struct{}{}:
		default:
		}
	}()

	return nil
}

// Close waits for every outstanding WRITE to complete and returns the
// first error any of them encountered, if any.
func (t *uploadTransfer) Close() error {
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
