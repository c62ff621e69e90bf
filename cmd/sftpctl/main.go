// Command sftpctl is a non-interactive SFTP client: each invocation runs
// one subcommand and exits, unlike psftp's interactive REPL (whose command
// history and tab-completion are out of scope here).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/go-sftp/sftp"
)

var (
	user     = flag.String("user", os.Getenv("USER"), "ssh username")
	host     = flag.String("host", "localhost", "ssh server hostname")
	port     = flag.Int("port", 22, "ssh server port")
	identity = flag.String("identity", "", "path to a private key file; SSH_AUTH_SOCK is used if unset")
	timeout  = flag.Duration("timeout", 30*time.Second, "dial and handshake timeout")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	client, err := dial()
	if err != nil {
		log.Fatalf("sftpctl: %v", err)
	}
	defer client.Close()

	cmd, rest := args[0], args[1:]

	var cmdErr error
	switch cmd {
	case "ls":
		cmdErr = runLs(client, rest)
	case "get":
		cmdErr = runGet(client, rest)
	case "put":
		cmdErr = runPut(client, rest)
	case "stat":
		cmdErr = runStat(client, rest)
	default:
		log.Fatalf("sftpctl: unknown subcommand %q", cmd)
	}

	if cmdErr != nil {
		log.Fatalf("sftpctl %s: %v", cmd, cmdErr)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <ls|get|put|stat> <path> [path]\n", os.Args[0])
	flag.PrintDefaults()
}

func dial() (*sftp.Session, error) {
	authMethods, err := authMethods()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            *user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         *timeout,
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := sftp.DialSSH(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}

	return client, nil
}

// authMethods prefers an explicit -identity key file, falling back to
// SSH_AUTH_SOCK, matching the reference client's agent-or-key-file pattern
// from examples/gsftp without carrying forward its password flag (static
// passwords on the command line are a pattern not worth reviving).
func authMethods() ([]ssh.AuthMethod, error) {
	if *identity != "" {
		key, err := os.ReadFile(*identity)
		if err != nil {
			return nil, fmt.Errorf("read identity: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse identity: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("no -identity given and SSH_AUTH_SOCK is unset")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("dial ssh-agent: %w", err)
	}
	ag := agent.NewClient(conn)
	return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}, nil
}

func runLs(client *sftp.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("remote path required")
	}

	walker := client.Walk(args[0])
	for walker.Step() {
		if err := walker.Err(); err != nil {
			log.Println(err)
			continue
		}
		fmt.Println(walker.Stat().(*sftp.FileInfo).Longname())
	}
	return nil
}

func runGet(client *sftp.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("remote path required")
	}

	f, err := client.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = os.Stdout
	if len(args) >= 2 {
		local, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer local.Close()
		w = local
	}

	_, err = f.WriteTo(w)
	return err
}

func runPut(client *sftp.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: put <local> <remote>")
	}

	local, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer local.Close()

	f, err := client.Create(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.ReadFrom(local)
	return err
}

func runStat(client *sftp.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("remote path required")
	}

	fi, err := client.Stat(args[0])
	if err != nil {
		return err
	}

	fmt.Println(sftp.FormatLongname(fi, nil))
	return nil
}
