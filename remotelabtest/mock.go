// Package remotelabtest provides test doubles for the remotelab transport
// interfaces: testify-backed mocks for expectation-style tests, a scripted
// transport that records commands and replays canned responses, and an
// in-memory file channel.
package remotelabtest

import (
	"io"
	"os"

	"github.com/remotelab/remotelab"
	"github.com/stretchr/testify/mock"
)

// Transport implements a mock remotelab.Transport using testify/mock.
type Transport struct {
	mock.Mock
}

var _ remotelab.Transport = (*Transport)(nil)

// NewTransport creates a new mock transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Exec mocks opening a fresh command channel.
func (m *Transport) Exec() (remotelab.CommandChannel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(remotelab.CommandChannel), args.Error(1)
}

// Files mocks opening the file-transfer channel.
func (m *Transport) Files() (remotelab.FileChannel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(remotelab.FileChannel), args.Error(1)
}

// Keepalive mocks the no-op keepalive signal.
func (m *Transport) Keepalive() error {
	return m.Called().Error(0)
}

// Close mocks closing the transport.
func (m *Transport) Close() error {
	return m.Called().Error(0)
}

// CommandChannel implements a mock remotelab.CommandChannel using testify/mock.
type CommandChannel struct {
	mock.Mock
}

var _ remotelab.CommandChannel = (*CommandChannel)(nil)

// Run mocks executing one command.
func (m *CommandChannel) Run(command string, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	args := m.Called(command, stdout, stderr, stdin)

	return args.Int(0), args.Error(1)
}

// Close mocks closing the channel.
func (m *CommandChannel) Close() error {
	return m.Called().Error(0)
}

// WriteStdout simulates command output for mocked channels.
// Usage: mockChannel.On("Run", ...).Run(WriteStdout("ok\n")).Return(0, nil).
func WriteStdout(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if w, ok := args.Get(1).(io.Writer); ok && w != nil {
			_, _ = io.WriteString(w, content)
		}
	}
}

// WriteStderr simulates command error output for mocked channels.
func WriteStderr(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if w, ok := args.Get(2).(io.Writer); ok && w != nil {
			_, _ = io.WriteString(w, content)
		}
	}
}

// FileChannel implements a mock remotelab.FileChannel using testify/mock.
type FileChannel struct {
	mock.Mock
}

var _ remotelab.FileChannel = (*FileChannel)(nil)

// Open mocks opening a remote file for reading.
func (m *FileChannel) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Create mocks creating a remote file for writing.
func (m *FileChannel) Create(path string) (io.WriteCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.WriteCloser), args.Error(1)
}

// MkdirAll mocks recursive remote directory creation.
func (m *FileChannel) MkdirAll(path string) error {
	return m.Called(path).Error(0)
}

// Stat mocks remote stat.
func (m *FileChannel) Stat(path string) (os.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(os.FileInfo), args.Error(1)
}

// Chmod mocks remote chmod.
func (m *FileChannel) Chmod(path string, mode os.FileMode) error {
	return m.Called(path, mode).Error(0)
}

// Remove mocks remote file removal.
func (m *FileChannel) Remove(path string) error {
	return m.Called(path).Error(0)
}

// Close mocks closing the file channel.
func (m *FileChannel) Close() error {
	return m.Called().Error(0)
}
