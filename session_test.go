package remotelab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/remotelab/remotelab"
	"github.com/remotelab/remotelab/remotelabtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host:               "example.com",
		User:               "alice",
		Password:           "pw",
		InsecureSkipVerify: true,
	}
}

func newConnectedSession(t *testing.T, transport *remotelabtest.ScriptedTransport, opts ...Option) *Session {
	t.Helper()

	opts = append(opts, WithDialFunc(func(Config) (Transport, error) {
		return transport, nil
	}))

	s := New(testConfig(), opts...)
	require.NoError(t, s.Connect(context.Background()))

	return s
}

func TestSession_Connect(t *testing.T) {
	t.Parallel()

	transport := remotelabtest.NewScriptedTransport()
	s := newConnectedSession(t, transport)

	assert.True(t, s.Connected())

	// Connect ensures the multiplexer session exists, idempotently.
	commands := transport.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, "tmux has-session -t 'main' 2>/dev/null || tmux new-session -d -s 'main'", commands[0])

	require.NoError(t, s.Disconnect())
	assert.False(t, s.Connected())
	assert.True(t, transport.Closed())
	assert.True(t, transport.FileSystem().Closed())
}

func TestSession_Connect_AlreadyConnected(t *testing.T) {
	t.Parallel()

	dials := 0
	transport := remotelabtest.NewScriptedTransport()

	s := New(testConfig(), WithDialFunc(func(Config) (Transport, error) {
		dials++

		return transport, nil
	}))

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, 1, dials)

	require.NoError(t, s.Disconnect())
}

func TestSession_Connect_DialFailure(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), WithDialFunc(func(Config) (Transport, error) {
		return nil, errors.New("auth failed")
	}))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Contains(t, err.Error(), "example.com:22")
	assert.False(t, s.Connected())
}

func TestSession_Connect_FileChannelFailure(t *testing.T) {
	t.Parallel()

	transport := remotelabtest.NewTransport()
	transport.On("Files").Return(nil, errors.New("sftp subsystem unavailable"))
	transport.On("Close").Return(nil)

	s := New(testConfig(), WithDialFunc(func(Config) (Transport, error) {
		return transport, nil
	}))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.False(t, s.Connected())

	// No partial state: the transport must not be left open.
	transport.AssertCalled(t, "Close")
}

func TestSession_Connect_MultiplexerFailure(t *testing.T) {
	t.Parallel()

	transport := remotelabtest.NewScriptedTransport()
	transport.Respond(func(command string) remotelabtest.Response {
		return remotelabtest.Response{ExitCode: 127} // tmux not installed
	})

	s := New(testConfig(), WithDialFunc(func(Config) (Transport, error) {
		return transport, nil
	}))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.False(t, s.Connected())
	assert.True(t, transport.Closed())
}

func TestSession_Connect_InvalidConfig(t *testing.T) {
	t.Parallel()

	s := New(Config{User: "alice", Password: "pw", InsecureSkipVerify: true},
		WithDialFunc(func(Config) (Transport, error) {
			t.Fatal("dial must not be called for an invalid config")

			return nil, nil
		}))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host address cannot be empty")
}

func TestSession_OperationsFailFastWhenDisconnected(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), WithDialFunc(func(Config) (Transport, error) {
		t.Fatal("no network call may happen on a disconnected session")

		return nil, nil
	}))

	ctx := context.Background()

	_, err := s.Execute(ctx, "whoami")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.ExecuteStream(ctx, "whoami", nil, nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	err = s.WriteFile(ctx, "/tmp/x", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.ReadFile(ctx, "/tmp/x")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = s.UploadFile(ctx, "local", "remote")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = s.DownloadFile(ctx, "remote", "local")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSession_Disconnect_Idempotent(t *testing.T) {
	t.Parallel()

	transport := remotelabtest.NewScriptedTransport()
	s := newConnectedSession(t, transport)

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Disconnect())

	assert.False(t, s.Connected())
}

func TestSession_Disconnect_NeverConnected(t *testing.T) {
	t.Parallel()

	s := New(testConfig())

	require.NoError(t, s.Disconnect())
	assert.False(t, s.Connected())
}

func TestSession_KeepaliveLoss(t *testing.T) {
	t.Parallel()

	transport := remotelabtest.NewScriptedTransport()
	s := newConnectedSession(t, transport, WithKeepaliveInterval(5*time.Millisecond))

	transport.SetKeepaliveErr(errors.New("connection reset"))

	assert.Eventually(t, func() bool {
		return !s.Connected()
	}, time.Second, 5*time.Millisecond, "keepalive failure must mark the session disconnected")

	_, err := s.Execute(context.Background(), "whoami")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, s.Disconnect())
}

func TestSession_Config_Defaults(t *testing.T) {
	t.Parallel()

	s := New(testConfig())
	cfg := s.Config()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTmuxSession, cfg.TmuxSession)
	assert.Equal(t, DefaultVenvName, cfg.VenvName)
}
