package remotelab

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Transport is the authenticated connection carrying all command and
// file-transfer traffic to the remote host. A Session owns exactly one.
type Transport interface {
	io.Closer

	// Exec opens a fresh command channel on the transport.
	Exec() (CommandChannel, error)

	// Files opens the file-transfer sub-channel.
	Files() (FileChannel, error)

	// Keepalive sends a no-op signal to keep the connection open.
	// An error means the transport is no longer usable.
	Keepalive() error
}

// CommandChannel executes exactly one remote command.
type CommandChannel interface {
	io.Closer

	// Run executes command, forwarding output to stdout and stderr as it
	// arrives. Both streams are fully drained before the exit code is
	// returned. A non-zero exit code is data, not an error; err is non-nil
	// only for transport-level failures.
	Run(command string, stdout, stderr io.Writer, stdin io.Reader) (int, error)
}

// FileChannel is the file-transfer surface the session needs.
type FileChannel interface {
	io.Closer

	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string) error
	Stat(path string) (os.FileInfo, error)
	Chmod(path string, mode os.FileMode) error
	Remove(path string) error
}

// DialFunc opens a Transport for the given config. Sessions use DialSSH
// unless overridden with WithDialFunc (test seam).
type DialFunc func(cfg Config) (Transport, error)

// DialSSH establishes an authenticated SSH transport.
func DialSSH(cfg Config) (Transport, error) {
	clientConfig, err := cfg.ToClientConfig()
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	return NewTransportFromClient(client), nil
}

// NewTransportFromClient wraps an existing SSH client as a Transport.
func NewTransportFromClient(client *ssh.Client) Transport {
	return &sshTransport{client: client}
}

type sshTransport struct {
	client *ssh.Client
}

func (t *sshTransport) Exec() (CommandChannel, error) {
	session, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh session: %w", err)
	}

	return &sshCommandChannel{session: session}, nil
}

func (t *sshTransport) Files() (FileChannel, error) {
	client, err := sftp.NewClient(t.client)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return &sftpFileChannel{client: client}, nil
}

func (t *sshTransport) Keepalive() error {
	// OpenSSH replies to this request; an error means the connection is gone.
	_, _, err := t.client.SendRequest("keepalive@openssh.com", true, nil)

	return err
}

func (t *sshTransport) Close() error {
	return t.client.Close()
}

type sshCommandChannel struct {
	session *ssh.Session
}

func (c *sshCommandChannel) Run(command string, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	if stdout != nil {
		c.session.Stdout = stdout
	}

	if stderr != nil {
		c.session.Stderr = stderr
	}

	if stdin != nil {
		c.session.Stdin = stdin
	}

	// Session.Run drains both streams before reporting the exit status.
	err := c.session.Run(command)
	if err != nil {
		exitErr := &ssh.ExitError{}
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}

		return 0, err
	}

	return 0, nil
}

func (c *sshCommandChannel) Close() error {
	return c.session.Close()
}

type sftpFileChannel struct {
	client *sftp.Client
}

func (f *sftpFileChannel) Open(path string) (io.ReadCloser, error) {
	return f.client.Open(path)
}

func (f *sftpFileChannel) Create(path string) (io.WriteCloser, error) {
	return f.client.Create(path)
}

func (f *sftpFileChannel) MkdirAll(path string) error {
	return f.client.MkdirAll(path)
}

func (f *sftpFileChannel) Stat(path string) (os.FileInfo, error) {
	return f.client.Stat(path)
}

func (f *sftpFileChannel) Chmod(path string, mode os.FileMode) error {
	return f.client.Chmod(path, mode)
}

func (f *sftpFileChannel) Remove(path string) error {
	return f.client.Remove(path)
}

func (f *sftpFileChannel) Close() error {
	return f.client.Close()
}
