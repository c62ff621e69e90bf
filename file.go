package sftp

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	sshfx "github.com/go-sftp/sftp/encoding/ssh/filexfer"
	"github.com/go-sftp/sftp/encoding/ssh/filexfer/openssh"
)

// FileInfo adapts a server-reported name and Attributes to fs.FileInfo, for
// Stat/Lstat and for the entries produced by Dir.Readdir.
type FileInfo struct {
	name     string
	attrs    sshfx.Attributes
	longname string
}

var _ fs.FileInfo = (*FileInfo)(nil)

func (fi *FileInfo) Name() string { return fi.name }

// Longname returns the server-rendered `ls -l` style line for this entry,
// as carried by the NAME packet's longname field. If the server sent an
// empty longname, one is synthesized locally via FormatLongname.
func (fi *FileInfo) Longname() string {
	if fi.longname != "" {
		return fi.longname
	}
	return FormatLongname(fi, nil)
}

func (fi *FileInfo) Size() int64 {
	size, _ := fi.attrs.GetSize()
	return int64(size)
}

func (fi *FileInfo) Mode() fs.FileMode { return fi.attrs.GetPermissions().ToGoFileMode() }

func (fi *FileInfo) ModTime() time.Time {
	_, mtime, ok := fi.attrs.GetACModTime()
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(mtime), 0)
}

func (fi *FileInfo) IsDir() bool { return fi.Mode().IsDir() }

func (fi *FileInfo) Sys() interface{} { return &fi.attrs }

// translateOpenFlags converts Go's os.O_* flags into the SFTP v3 pflags word.
func translateOpenFlags(flag int) uint32 {
	var pflags uint32

	switch {
	case flag&os.O_RDWR != 0:
		pflags = sshfx.FlagRead | sshfx.FlagWrite
	case flag&os.O_WRONLY != 0:
		pflags = sshfx.FlagWrite
	default:
		pflags = sshfx.FlagRead
	}

	if flag&os.O_APPEND != 0 {
		pflags |= sshfx.FlagAppend
	}
	if flag&os.O_CREATE != 0 {
		pflags |= sshfx.FlagCreate
	}
	if flag&os.O_TRUNC != 0 {
		pflags |= sshfx.FlagTruncate
	}
	if flag&os.O_EXCL != 0 {
		pflags |= sshfx.FlagExclusive
	}

	return pflags
}

// Open opens the named file read-only.
func (s *Session) Open(path string) (*File, error) {
	return s.OpenFile(path, os.O_RDONLY, 0)
}

// Create truncates and opens (or creates) the named file for writing.
func (s *Session) Create(path string) (*File, error) {
	return s.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens the named file with the given Go-style flags and, when
// O_CREATE is set, the given permissions.
func (s *Session) OpenFile(path string, flag int, perm fs.FileMode) (*File, error) {
	var attrs sshfx.Attributes
	if flag&os.O_CREATE != 0 {
		attrs.SetPermissions(sshfx.FromGoFileMode(perm))
	}

	handle, err := s.openHandle(path, translateOpenFlags(flag), attrs)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}

	return &File{s: s, name: path, handle: handle}, nil
}

// Mkdir creates a directory with the given permissions.
func (s *Session) Mkdir(path string, perm fs.FileMode) error {
	var attrs sshfx.Attributes
	attrs.SetPermissions(sshfx.FromGoFileMode(perm))

	if err := s.mkdir(path, attrs); err != nil {
		return &PathError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Remove removes the named file or, per RFC, fails for a directory — use
// RemoveDirectory for that.
func (s *Session) Remove(path string) error {
	if err := s.remove(path); err != nil {
		return &PathError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// RemoveDirectory removes the named, empty directory.
func (s *Session) RemoveDirectory(path string) error {
	if err := s.rmdir(path); err != nil {
		return &PathError{Op: "rmdir", Path: path, Err: err}
	}
	return nil
}

// Rename renames oldpath to newpath. When the server has advertised
// posix-rename@openssh.com, that extension is used instead of plain
// RENAME so that an existing newpath is atomically replaced rather than
// causing a failure.
func (s *Session) Rename(oldpath, newpath string) error {
	var err error
	if s.hasExtension(extensionPosixRenameName) {
		err = s.posixRename(oldpath, newpath)
	} else {
		err = s.rename(oldpath, newpath)
	}
	if err != nil {
		return &LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	return nil
}

// extensionPosixRenameName mirrors the Name of openssh.ExtensionPosixRename(),
// whose underlying constant the openssh package does not export.
const extensionPosixRenameName = "posix-rename@openssh.com"

// Stat returns file attributes, following symbolic links.
func (s *Session) Stat(path string) (os.FileInfo, error) {
	attrs, err := s.stat(path)
	if err != nil {
		return nil, &PathError{Op: "stat", Path: path, Err: err}
	}
	return &FileInfo{name: path, attrs: *attrs}, nil
}

// Lstat returns file attributes without following a final symbolic link.
func (s *Session) Lstat(path string) (os.FileInfo, error) {
	attrs, err := s.lstat(path)
	if err != nil {
		return nil, &PathError{Op: "lstat", Path: path, Err: err}
	}
	return &FileInfo{name: path, attrs: *attrs}, nil
}

// Symlink creates newname as a symbolic link to oldname.
func (s *Session) Symlink(oldname, newname string) error {
	if err := s.symlink(oldname, newname); err != nil {
		return &LinkError{Op: "symlink", Old: oldname, New: newname, Err: err}
	}
	return nil
}

// Readlink returns the destination of the named symbolic link.
func (s *Session) Readlink(path string) (string, error) {
	target, err := s.readlink(path)
	if err != nil {
		return "", &PathError{Op: "readlink", Path: path, Err: err}
	}
	return target, nil
}

// RealPath resolves path server-side into a canonical absolute path.
func (s *Session) RealPath(path string) (string, error) {
	resolved, err := s.realpath(path)
	if err != nil {
		return "", &PathError{Op: "realpath", Path: path, Err: err}
	}
	return resolved, nil
}

// Chmod changes the named file's permissions.
func (s *Session) Chmod(path string, mode fs.FileMode) error {
	var attrs sshfx.Attributes
	attrs.SetPermissions(sshfx.FromGoFileMode(mode))

	if err := s.setstat(path, attrs); err != nil {
		return &PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// Chown changes the named file's owning UID and GID.
func (s *Session) Chown(path string, uid, gid int) error {
	var attrs sshfx.Attributes
	attrs.SetUIDGID(uint32(uid), uint32(gid))

	if err := s.setstat(path, attrs); err != nil {
		return &PathError{Op: "chown", Path: path, Err: err}
	}
	return nil
}

// Truncate changes the named file's size.
func (s *Session) Truncate(path string, size int64) error {
	var attrs sshfx.Attributes
	attrs.SetSize(uint64(size))

	if err := s.setstat(path, attrs); err != nil {
		return &PathError{Op: "truncate", Path: path, Err: err}
	}
	return nil
}

// StatVFS reports filesystem statistics for path, using the
// statvfs@openssh.com extension. It returns ErrExtensionUnsupported if the
// server never advertised that extension.
func (s *Session) StatVFS(path string) (*openssh.StatVFS, error) {
	if !s.hasExtension(extensionStatVFSName) {
		return nil, &PathError{Op: "statvfs", Path: path, Err: ErrExtensionUnsupported}
	}

	v, err := s.statvfs(path)
	if err != nil {
		return nil, &PathError{Op: "statvfs", Path: path, Err: err}
	}
	return v, nil
}

const extensionStatVFSName = "statvfs@openssh.com"
const extensionFSyncName = "fsync@openssh.com"

// PathError and LinkError mirror the stdlib's fs.PathError/os.LinkError
// shape, letting callers use errors.As against the familiar types while
// wrapping this package's own error values.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string { return e.Op + " " + e.Path + ": " + e.Err.Error() }
func (e *PathError) Unwrap() error { return e.Err }

type LinkError struct {
	Op, Old, New string
	Err          error
}

func (e *LinkError) Error() string {
	return e.Op + " " + e.Old + " " + e.New + ": " + e.Err.Error()
}
func (e *LinkError) Unwrap() error { return e.Err }

// File is an open remote file handle. It implements io.ReadWriteCloser,
// io.Seeker, io.ReaderAt, io.WriterAt, io.ReaderFrom, and io.WriterTo.
// A *File is not safe for concurrent use by multiple goroutines.
type File struct {
	s      *Session
	name   string
	handle string

	mu     sync.Mutex
	offset int64
	closed bool

	download *downloadTransfer
	upload   *uploadTransfer

	// readBuf/readRem hold the undelivered tail of the last pipelined
	// download chunk, so a caller reading with a buffer smaller than the
	// chunk size loses nothing between Read calls.
	readBuf []byte
	readRem []byte
}

func (f *File) Name() string { return f.name }

// Close releases the remote handle and any in-flight transfer state.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	download, upload := f.download, f.upload
	readBuf := f.readBuf
	f.download, f.upload = nil, nil
	f.readBuf, f.readRem = nil, nil
	f.mu.Unlock()

	if download != nil {
		download.Release(readBuf)
		download.Close()
	}
	if upload != nil {
		upload.Close()
	}

	if err := f.s.closeHandle(f.handle); err != nil {
		return &PathError{Op: "close", Path: f.name, Err: err}
	}
	return nil
}

// Stat returns the open file's attributes via FSTAT.
func (f *File) Stat() (os.FileInfo, error) {
	attrs, err := f.s.fstat(f.handle)
	if err != nil {
		return nil, &PathError{Op: "fstat", Path: f.name, Err: err}
	}
	return &FileInfo{name: f.name, attrs: *attrs}, nil
}

// Chmod changes the open file's permissions via FSETSTAT.
func (f *File) Chmod(mode fs.FileMode) error {
	var attrs sshfx.Attributes
	attrs.SetPermissions(sshfx.FromGoFileMode(mode))

	if err := f.s.fsetstat(f.handle, attrs); err != nil {
		return &PathError{Op: "fchmod", Path: f.name, Err: err}
	}
	return nil
}

// Truncate changes the open file's size via FSETSTAT.
func (f *File) Truncate(size int64) error {
	var attrs sshfx.Attributes
	attrs.SetSize(uint64(size))

	if err := f.s.fsetstat(f.handle, attrs); err != nil {
		return &PathError{Op: "ftruncate", Path: f.name, Err: err}
	}
	return nil
}

// Sync flushes the open file's content to stable storage on the server,
// using the fsync@openssh.com extension. It returns ErrExtensionUnsupported
// if the server never advertised that extension.
func (f *File) Sync() error {
	if !f.s.hasExtension(extensionFSyncName) {
		return &PathError{Op: "fsync", Path: f.name, Err: ErrExtensionUnsupported}
	}

	if err := f.s.fsync(f.handle); err != nil {
		return &PathError{Op: "fsync", Path: f.name, Err: err}
	}
	return nil
}

// Seek implements io.Seeker against the client-tracked offset. A pipelined
// download in progress is abandoned, since its queued reads were issued
// against the old offset; an upload is flushed so its writes land before
// any that follow the seek.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.download != nil {
		f.download.Release(f.readBuf)
		f.download.Close()
		f.download = nil
		f.readBuf, f.readRem = nil, nil
	}
	if f.upload != nil {
		err := f.upload.Close()
		f.upload = nil
		if err != nil {
			return 0, &PathError{Op: "seek", Path: f.name, Err: err}
		}
	}

	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		attrs, err := f.s.fstat(f.handle)
		if err != nil {
			return 0, &PathError{Op: "seek", Path: f.name, Err: err}
		}
		size, _ := attrs.GetSize()
		f.offset = int64(size) + offset
	default:
		return 0, &PathError{Op: "seek", Path: f.name, Err: errProtocol("invalid whence %d", whence)}
	}

	return f.offset, nil
}

// ReadAt reads len(p) bytes starting at off without disturbing the file's
// current offset. Requests are capped at the session's packet size, so a
// large p is satisfied by as many READs as it takes; per io.ReaderAt, a
// short return always carries an error.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	var total int
	for total < len(p) {
		chunk := p[total:]
		if len(chunk) > f.s.maxPacket {
			chunk = chunk[:f.s.maxPacket]
		}

		n, err := f.s.read(f.handle, uint64(off)+uint64(total), chunk)
		total += n
		if err != nil {
			if err != io.EOF {
				err = &PathError{Op: "read", Path: f.name, Err: err}
			}
			return total, err
		}
	}
	return total, nil
}

// WriteAt writes len(p) bytes at off without disturbing the file's current
// offset, splitting p across as many WRITEs as the session's packet size
// requires.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	var total int
	for total < len(p) {
		chunk := p[total:]
		if len(chunk) > f.s.maxPacket {
			chunk = chunk[:f.s.maxPacket]
		}

		if err := f.s.write(f.handle, uint64(off)+uint64(total), chunk); err != nil {
			return total, &PathError{Op: "write", Path: f.name, Err: err}
		}
		total += len(chunk)
	}
	return total, nil
}

// Read implements io.Reader at the file's current offset. When the
// session was constructed with UseConcurrentReads, successive calls are
// served by a pipelined downloadTransfer instead of one READ per call.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.s.useConcurrentReads {
		if f.download == nil {
			f.download = newDownloadTransfer(f.s, f.handle, uint64(f.offset), f.s.maxConcurrentRequests*downloadBlockSize)
		}

		if len(f.readRem) == 0 {
			buf, n, err := f.download.Next()
			if err != nil {
				if err != io.EOF {
					err = &PathError{Op: "read", Path: f.name, Err: err}
				}
				return 0, err
			}
			f.readBuf = buf
			f.readRem = buf[:n]
		}

		n := copy(p, f.readRem)
		f.readRem = f.readRem[n:]
		if len(f.readRem) == 0 {
			f.download.Release(f.readBuf)
			f.readBuf, f.readRem = nil, nil
		}
		f.offset += int64(n)
		return n, nil
	}

	chunk := p
	if len(chunk) > f.s.maxPacket {
		chunk = chunk[:f.s.maxPacket]
	}

	n, err := f.s.read(f.handle, uint64(f.offset), chunk)
	f.offset += int64(n)
	if err != nil && err != io.EOF {
		err = &PathError{Op: "read", Path: f.name, Err: err}
	}
	return n, err
}

// Write implements io.Writer at the file's current offset. When the
// session was constructed with UseConcurrentWrites, writes are pipelined
// through an uploadTransfer instead of waiting for each WRITE to be
// acknowledged before issuing the next.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.s.useConcurrentWrites {
		if f.upload == nil {
			f.upload = newUploadTransfer(f.s, f.handle, f.s.maxConcurrentRequests*downloadBlockSize)
		}

		// Submit hands the slice to a WRITE still in flight when this call
		// returns, so each chunk is copied: io.Writer callers are free to
		// reuse p immediately.
		var total int
		for total < len(p) {
			chunk := p[total:]
			if len(chunk) > f.s.maxPacket {
				chunk = chunk[:f.s.maxPacket]
			}
			owned := make([]byte, len(chunk))
			copy(owned, chunk)

			if err := f.upload.Submit(uint64(f.offset), owned); err != nil {
				return total, &PathError{Op: "write", Path: f.name, Err: err}
			}
			f.offset += int64(len(chunk))
			total += len(chunk)
		}
		return total, nil
	}

	var total int
	for total < len(p) {
		chunk := p[total:]
		if len(chunk) > f.s.maxPacket {
			chunk = chunk[:f.s.maxPacket]
		}

		if err := f.s.write(f.handle, uint64(f.offset), chunk); err != nil {
			return total, &PathError{Op: "write", Path: f.name, Err: err}
		}
		f.offset += int64(len(chunk))
		total += len(chunk)
	}
	return total, nil
}

// WriteTo implements io.WriterTo, streaming the remainder of the file into
// w using the pipelined download engine regardless of UseConcurrentReads.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	f.mu.Lock()
	offset := f.offset
	f.mu.Unlock()

	xfer := newDownloadTransfer(f.s, f.handle, uint64(offset), f.s.maxConcurrentRequests*downloadBlockSize)
	defer xfer.Close()

	var total int64
	for {
		buf, n, err := xfer.Next()
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				xfer.Release(buf)
				return total, werr
			}
		}
		xfer.Release(buf)

		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
	}

	f.mu.Lock()
	f.offset = offset + total
	f.mu.Unlock()

	return total, nil
}

// ReadFrom implements io.ReaderFrom, streaming all of r into the file
// using the pipelined upload engine regardless of UseConcurrentWrites.
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	f.mu.Lock()
	offset := f.offset
	f.mu.Unlock()

	xfer := newUploadTransfer(f.s, f.handle, f.s.maxConcurrentRequests*downloadBlockSize)

	blockSize := downloadBlockSize
	if f.s.maxPacket < blockSize {
		blockSize = f.s.maxPacket
	}

	var total int64
	buf := make([]byte, blockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if serr := xfer.Submit(uint64(offset)+uint64(total), chunk); serr != nil {
				xfer.Close()
				return total, serr
			}
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			xfer.Close()
			return total, err
		}
	}

	if err := xfer.Close(); err != nil {
		return total, err
	}

	f.mu.Lock()
	f.offset = offset + total
	f.mu.Unlock()

	return total, nil
}

// Dir is an open remote directory handle, obtained from Session.OpenDir.
type Dir struct {
	s      *Session
	name   string
	handle string
	done   bool
}

// OpenDir opens the named directory for listing via READDIR.
func (s *Session) OpenDir(path string) (*Dir, error) {
	handle, err := s.opendirHandle(path)
	if err != nil {
		return nil, &PathError{Op: "opendir", Path: path, Err: err}
	}
	return &Dir{s: s, name: path, handle: handle}, nil
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	if err := d.s.closeHandle(d.handle); err != nil {
		return &PathError{Op: "closedir", Path: d.name, Err: err}
	}
	return nil
}

// Readdir reads and returns the remaining directory entries, a batch of
// READDIR responses at a time until the server reports EOF.
func (d *Dir) Readdir() ([]os.FileInfo, error) {
	if d.done {
		return nil, io.EOF
	}

	entries, err := d.s.readdir(d.handle)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.done = true
			return nil, io.EOF
		}
		return nil, &PathError{Op: "readdir", Path: d.name, Err: err}
	}

	infos := make([]os.FileInfo, len(entries))
	for i, e := range entries {
		infos[i] = &FileInfo{name: e.Filename, attrs: e.Attrs, longname: e.Longname}
	}
	return infos, nil
}

// ReadDir reads every remaining entry in the directory.
func (d *Dir) ReadDir() ([]os.FileInfo, error) {
	var all []os.FileInfo
	for {
		batch, err := d.Readdir()
		all = append(all, batch...)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return all, err
		}
	}
}
