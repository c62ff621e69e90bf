package sftp

import (
	"context"
	"io"

	"golang.org/x/crypto/ssh"
)

// sshSubsystemConn adapts an *ssh.Session's stdin/stdout pipes and the
// session itself into the io.ReadWriteCloser that NewSession wants, so the
// protocol engine never needs to know it is riding over an SSH channel.
type sshSubsystemConn struct {
	io.Reader
	io.WriteCloser
	session *ssh.Session
}

func (c *sshSubsystemConn) Close() error {
	werr := c.WriteCloser.Close()
	serr := c.session.Close()
	if werr != nil {
		return werr
	}
	if serr != nil && serr != io.EOF {
		return serr
	}
	return nil
}

// DialSSH opens a new SSH session on conn, requests the "sftp" subsystem,
// and wraps its stdin/stdout pipes in a Session. ctx only bounds the
// subsystem request and the subsequent INIT/VERSION handshake; once
// NewSession returns, the session's lifetime is controlled by Close.
func DialSSH(ctx context.Context, conn *ssh.Client, opts ...Option) (*Session, error) {
	sess, err := conn.NewSession()
	if err != nil {
		return nil, err
	}

	type dialResult struct {
		s   *Session
		err error
	}
	done := make(chan dialResult, 1)

	go func() {
		s, err := dialSSHSubsystem(sess, opts...)
		done <- dialResult{s, err}
	}()

	select {
	case res := <-done:
		return res.s, res.err
	case <-ctx.Done():
		sess.Close()
		<-done
		return nil, ctx.Err()
	}
}

func dialSSHSubsystem(sess *ssh.Session, opts ...Option) (*Session, error) {
	if err := sess.RequestSubsystem("sftp"); err != nil {
		sess.Close()
		return nil, err
	}

	wc, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}

	r, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}

	conn := &sshSubsystemConn{Reader: r, WriteCloser: wc, session: sess}

	s, err := NewSession(conn, opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	return s, nil
}
