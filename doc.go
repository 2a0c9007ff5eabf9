// Package remotelab drives a remote machine over SSH from a host
// application such as a notebook kernel.
//
// # Core Types
//
// - Config: connection credentials, loaded from a key=value text file.
// - Session: one owned SSH transport plus one SFTP file channel, with
// blocking and streaming command execution, file transfer, and Python
// virtual-environment bootstrap helpers.
// - Registry: named session handles for host applications managing more
// than one remote.
//
// # Lifecycle
//
// A Session is created disconnected. Connect opens the transport, opens the
// file channel, ensures a persistent tmux session exists on the remote, and
// starts a background keepalive that pings the transport every minute.
// Operations on a disconnected session fail fast with ErrNotConnected.
// Disconnect stops the keepalive deterministically and releases both
// channels; it is idempotent.
//
// # Streaming
//
// Execute buffers output and returns it with the exit code once both
// streams are drained. ExecuteStream forwards output to caller-supplied
// writers as it arrives, for long-running operations like package installs.
// A non-zero remote exit code is returned as data, never as an error.
//
// Usage:
//
//	cfg, err := remotelab.Load("connection_config.txt")
//	if err != nil { ... }
//
//	s := remotelab.New(cfg)
//	if err := s.Connect(ctx); err != nil { ... }
//	defer func() { _ = s.Disconnect() }()
//
//	res, err := s.Execute(ctx, "uname -a")
package remotelab
