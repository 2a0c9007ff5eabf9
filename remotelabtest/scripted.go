package remotelabtest

import (
	"io"
	"sync"

	"github.com/remotelab/remotelab"
)

// Response is a canned reply for one scripted command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // Transport-level failure; ExitCode is ignored when set
}

// ScriptedTransport implements remotelab.Transport for tests that assert on
// the exact command strings a session issues. Every executed command is
// recorded; replies come from the Respond callback (default: empty output,
// exit 0).
type ScriptedTransport struct {
	mu           sync.Mutex
	commands     []string
	respond      func(command string) Response
	keepaliveErr error
	closed       bool

	files *MemFileChannel
}

var _ remotelab.Transport = (*ScriptedTransport)(nil)

// NewScriptedTransport creates a scripted transport with an empty in-memory
// file channel.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		files: NewMemFileChannel(),
	}
}

// Respond installs the command reply callback.
func (t *ScriptedTransport) Respond(fn func(command string) Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.respond = fn
}

// SetKeepaliveErr makes subsequent Keepalive calls fail, simulating a dead
// transport.
func (t *ScriptedTransport) SetKeepaliveErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.keepaliveErr = err
}

// Commands returns a copy of every command executed so far, in order.
func (t *ScriptedTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.commands))
	copy(out, t.commands)

	return out
}

// Closed reports whether the transport has been closed.
func (t *ScriptedTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// FileSystem returns the in-memory file channel backing Files.
func (t *ScriptedTransport) FileSystem() *MemFileChannel {
	return t.files
}

// Exec opens a scripted command channel.
func (t *ScriptedTransport) Exec() (remotelab.CommandChannel, error) {
	return &scriptedChannel{transport: t}, nil
}

// Files returns the in-memory file channel.
func (t *ScriptedTransport) Files() (remotelab.FileChannel, error) {
	return t.files, nil
}

// Keepalive returns the configured keepalive error, if any.
func (t *ScriptedTransport) Keepalive() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.keepaliveErr
}

// Close marks the transport closed.
func (t *ScriptedTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true

	return nil
}

func (t *ScriptedTransport) reply(command string) Response {
	t.mu.Lock()
	t.commands = append(t.commands, command)
	respond := t.respond
	t.mu.Unlock()

	if respond == nil {
		return Response{}
	}

	return respond(command)
}

type scriptedChannel struct {
	transport *ScriptedTransport
}

func (c *scriptedChannel) Run(command string, stdout, stderr io.Writer, _ io.Reader) (int, error) {
	resp := c.transport.reply(command)
	if resp.Err != nil {
		return 0, resp.Err
	}

	if stdout != nil && resp.Stdout != "" {
		_, _ = io.WriteString(stdout, resp.Stdout)
	}

	if stderr != nil && resp.Stderr != "" {
		_, _ = io.WriteString(stderr, resp.Stderr)
	}

	return resp.ExitCode, nil
}

func (c *scriptedChannel) Close() error {
	return nil
}
