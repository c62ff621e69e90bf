package filexfer

import "os"

// FileMode represents the SFTP v3 permissions/type word carried by the
// AttrPermissions field of Attributes. It mirrors the POSIX st_mode
// encoding used on the wire, not os.FileMode's bit layout.
type FileMode uint32

// Permission bits, directly from POSIX st_mode.
const (
	ModePerm FileMode = 0777

	ModeSetUID FileMode = 04000
	ModeSetGID FileMode = 02000
	ModeSticky FileMode = 01000
)

// File type bits, directly from POSIX st_mode (the S_IFMT mask).
const (
	ModeType       FileMode = 0170000
	ModeNamedPipe  FileMode = 0010000
	ModeCharDevice FileMode = 0020000
	ModeDir        FileMode = 0040000
	ModeDevice     FileMode = 0060000
	ModeRegular    FileMode = 0100000
	ModeSymlink    FileMode = 0120000
	ModeSocket     FileMode = 0140000
)

// IsDir reports whether m describes a directory.
func (m FileMode) IsDir() bool {
	return m&ModeType == ModeDir
}

// IsRegular reports whether m describes a regular file.
func (m FileMode) IsRegular() bool {
	return m&ModeType == ModeRegular
}

// String renders m in `ls -l` style: a leading type character followed by
// nine permission characters, e.g. "drwxr-xr-x" or "-rw-r--r--".
func (m FileMode) String() string {
	buf := [10]byte{}

	switch m & ModeType {
	case ModeDir:
		buf[0] = 'd'
	case ModeSymlink:
		buf[0] = 'l'
	case ModeNamedPipe:
		buf[0] = 'p'
	case ModeSocket:
		buf[0] = 's'
	case ModeCharDevice:
		buf[0] = 'c'
	case ModeDevice:
		buf[0] = 'b'
	default:
		buf[0] = '-'
	}

	const rwx = "rwxrwxrwx"
	for i, c := range rwx {
		if m&(1<<uint(9-1-i)) != 0 {
			buf[i+1] = byte(c)
		} else {
			buf[i+1] = '-'
		}
	}

	if m&ModeSetUID != 0 {
		if buf[3] == 'x' {
			buf[3] = 's'
		} else {
			buf[3] = 'S'
		}
	}
	if m&ModeSetGID != 0 {
		if buf[6] == 'x' {
			buf[6] = 's'
		} else {
			buf[6] = 'S'
		}
	}
	if m&ModeSticky != 0 {
		if buf[9] == 'x' {
			buf[9] = 't'
		} else {
			buf[9] = 'T'
		}
	}

	return string(buf[:])
}

// ToGoFileMode converts an SFTP wire FileMode into the equivalent os.FileMode.
func (m FileMode) ToGoFileMode() os.FileMode {
	fm := os.FileMode(m & ModePerm)

	switch m & ModeType {
	case ModeDevice:
		fm |= os.ModeDevice
	case ModeCharDevice:
		fm |= os.ModeDevice | os.ModeCharDevice
	case ModeDir:
		fm |= os.ModeDir
	case ModeNamedPipe:
		fm |= os.ModeNamedPipe
	case ModeSymlink:
		fm |= os.ModeSymlink
	case ModeSocket:
		fm |= os.ModeSocket
	}

	if m&ModeSetUID != 0 {
		fm |= os.ModeSetuid
	}
	if m&ModeSetGID != 0 {
		fm |= os.ModeSetgid
	}
	if m&ModeSticky != 0 {
		fm |= os.ModeSticky
	}

	return fm
}

// FromGoFileMode converts an os.FileMode into the equivalent SFTP wire FileMode.
func FromGoFileMode(mode os.FileMode) FileMode {
	m := FileMode(mode.Perm())

	switch mode & os.ModeType {
	case os.ModeDevice | os.ModeCharDevice:
		m |= ModeCharDevice
	case os.ModeDevice:
		m |= ModeDevice
	case os.ModeDir:
		m |= ModeDir
	case os.ModeNamedPipe:
		m |= ModeNamedPipe
	case os.ModeSymlink:
		m |= ModeSymlink
	case os.ModeSocket:
		m |= ModeSocket
	case 0:
		m |= ModeRegular
	}

	if mode&os.ModeSetuid != 0 {
		m |= ModeSetUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= ModeSetGID
	}
	if mode&os.ModeSticky != 0 {
		m |= ModeSticky
	}

	return m
}
