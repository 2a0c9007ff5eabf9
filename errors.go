package remotelab

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound indicates that the connection config file does not exist.
// Callers decide whether this is fatal or merely disables remote features.
var ErrConfigNotFound = errors.New("connection config not found")

// ErrConnectionFailed indicates that Connect could not establish the
// transport or the file channel. The session remains disconnected.
var ErrConnectionFailed = errors.New("connection failed")

// ErrNotConnected indicates that an operation was attempted before Connect
// succeeded or after Disconnect. No remote call is made.
var ErrNotConnected = errors.New("session not connected")

// ErrTransferFailed indicates a file read/write/upload/download failure.
var ErrTransferFailed = errors.New("file transfer failed")

// ConnectError wraps the underlying dial or channel-setup failure.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("connection failed: %v", e.Err)
	}

	return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectionFailed so callers can match with errors.Is.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// TransferError wraps a failure in the file-transfer channel.
type TransferError struct {
	Op   string // "read", "write", "upload" or "download"
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransferFailed so callers can match with errors.Is.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}
