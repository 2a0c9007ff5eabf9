package remotelab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultKeepaliveInterval is how often the background keepalive pings the
// transport.
const DefaultKeepaliveInterval = 60 * time.Second

// Session drives one remote machine over a single owned transport.
//
// Lifecycle: created disconnected, Connect transitions to connected
// (transport and file channel both live, keepalive running), Disconnect
// tears down. Operations on a disconnected session fail fast with
// ErrNotConnected. A Session is not designed for concurrent command
// execution from multiple goroutines; callers must serialize.
type Session struct {
	config            Config
	dial              DialFunc
	keepaliveInterval time.Duration

	mu        sync.Mutex
	transport Transport
	files     FileChannel
	connected bool

	stopKeepalive context.CancelFunc
	keepaliveDone chan struct{}
}

// Option defines a functional option for a Session.
type Option func(*Session)

// WithDialFunc overrides how the transport is established. Intended for
// tests and custom tunneling setups.
func WithDialFunc(dial DialFunc) Option {
	return func(s *Session) {
		s.dial = dial
	}
}

// WithKeepaliveInterval overrides the keepalive ping interval.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.keepaliveInterval = d
		}
	}
}

// New creates a disconnected Session for the given config.
// Zero-valued config fields are filled with defaults.
func New(cfg Config, opts ...Option) *Session {
	s := &Session{
		config:            cfg.WithDefaults(),
		dial:              DialSSH,
		keepaliveInterval: DefaultKeepaliveInterval,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Config returns the session's configuration with defaults applied.
func (s *Session) Config() Config {
	return s.config
}

// Connected reports whether the session currently holds a live transport.
// It turns false after Disconnect or after the keepalive detects loss.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

// Connect opens the authenticated transport, opens the file-transfer
// channel, ensures the named tmux session exists on the remote, and starts
// the background keepalive. Any failure leaves the session disconnected
// with no partial state; the returned error matches ErrConnectionFailed.
//
// Connect on an already connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()

		return nil
	}
	s.mu.Unlock()

	if err := s.config.Validate(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	transport, err := s.dial(s.config)
	if err != nil {
		return &ConnectError{Addr: addr, Err: err}
	}

	files, err := transport.Files()
	if err != nil {
		_ = transport.Close()

		return &ConnectError{Addr: addr, Err: err}
	}

	if err := ensureMultiplexer(ctx, transport, s.config.TmuxSession); err != nil {
		_ = files.Close()
		_ = transport.Close()

		return &ConnectError{Addr: addr, Err: err}
	}

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.transport = transport
	s.files = files
	s.connected = true
	s.stopKeepalive = cancel
	s.keepaliveDone = done
	s.mu.Unlock()

	go s.keepaliveLoop(keepaliveCtx, transport, done)

	return nil
}

// Disconnect stops the keepalive, then releases the file channel and the
// transport, in that order, tolerating either being already closed.
// It is idempotent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.connected = false
	cancel := s.stopKeepalive
	done := s.keepaliveDone
	files := s.files
	transport := s.transport
	s.stopKeepalive = nil
	s.keepaliveDone = nil
	s.files = nil
	s.transport = nil
	s.mu.Unlock()

	// Stop the keepalive deterministically before releasing the transport,
	// so a reconnect cannot overlap with a stale keepalive goroutine.
	if cancel != nil {
		cancel()
	}

	if done != nil {
		<-done
	}

	var errs []error

	if files != nil {
		if err := files.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if transport != nil {
		if err := transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ensureMultiplexer makes sure a tmux session with the given name exists on
// the remote, creating it only if absent. Idempotent.
func ensureMultiplexer(ctx context.Context, transport Transport, name string) error {
	quoted := Quote(name)
	command := fmt.Sprintf("tmux has-session -t %s 2>/dev/null || tmux new-session -d -s %s", quoted, quoted)

	code, err := runOnTransport(ctx, transport, command, io.Discard, io.Discard, nil)
	if err != nil {
		return err
	}

	if code != 0 {
		return fmt.Errorf("tmux session %q setup exited with code %d", name, code)
	}

	return nil
}

func (s *Session) keepaliveLoop(ctx context.Context, transport Transport, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := transport.Keepalive(); err != nil {
				// Connection lost: observable via Connected() or the next
				// ErrNotConnected. No retry.
				s.mu.Lock()
				s.connected = false
				s.mu.Unlock()

				return
			}
		}
	}
}

// acquireTransport returns the live transport or ErrNotConnected.
func (s *Session) acquireTransport() (Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.transport == nil {
		return nil, ErrNotConnected
	}

	return s.transport, nil
}

// acquireFiles returns the live file channel or ErrNotConnected.
func (s *Session) acquireFiles() (FileChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.files == nil {
		return nil, ErrNotConnected
	}

	return s.files, nil
}
