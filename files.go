package remotelab

import (
	"context"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"

	"github.com/remotelab/remotelab/fileutil"
)

// ProgressFunc is a callback for tracking file transfer progress.
type ProgressFunc = fileutil.ProgressFunc

// FileConfig holds configuration for file transfers.
type FileConfig struct {
	Permissions os.FileMode // Destination perms override (0 means preserve/default)
	Progress    ProgressFunc
}

// FileOption defines a functional option for file transfers.
type FileOption func(*FileConfig)

// WithPermissions forces a specific destination file mode.
func WithPermissions(mode os.FileMode) FileOption {
	return func(c *FileConfig) {
		c.Permissions = mode
	}
}

// WithProgress calls fn with progress updates during the transfer.
func WithProgress(fn ProgressFunc) FileOption {
	return func(c *FileConfig) {
		c.Progress = fn
	}
}

// WriteFile writes content to a remote file over the file channel.
// String content should be passed as UTF-8 bytes; binary passes through
// unchanged.
func (s *Session) WriteFile(ctx context.Context, path string, content []byte) error {
	files, err := s.acquireFiles()
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dst, err := files.Create(path)
	if err != nil {
		return &TransferError{Op: "write", Path: path, Err: err}
	}

	if _, err := dst.Write(content); err != nil {
		_ = dst.Close()

		return &TransferError{Op: "write", Path: path, Err: err}
	}

	if err := dst.Close(); err != nil {
		return &TransferError{Op: "write", Path: path, Err: err}
	}

	return nil
}

// ReadFile reads a remote file over the file channel.
func (s *Session) ReadFile(ctx context.Context, path string) ([]byte, error) {
	files, err := s.acquireFiles()
	if err != nil {
		return nil, err
	}

	src, err := files.Open(path)
	if err != nil {
		return nil, &TransferError{Op: "read", Path: path, Err: err}
	}

	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(&fileutil.ContextReader{Ctx: ctx, Reader: src})
	if err != nil {
		return nil, &TransferError{Op: "read", Path: path, Err: err}
	}

	return content, nil
}

// UploadFile copies a local file to the remote path, creating any missing
// parent directories at the destination.
func (s *Session) UploadFile(ctx context.Context, localPath, remotePath string, opts ...FileOption) error {
	files, err := s.acquireFiles()
	if err != nil {
		return err
	}

	var cfg FileConfig
	for _, o := range opts {
		o(&cfg)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return &TransferError{Op: "upload", Path: localPath, Err: err}
	}

	defer func() { _ = src.Close() }()

	mode := os.FileMode(0o644)

	var size int64

	if info, err := src.Stat(); err == nil {
		mode = info.Mode()
		size = info.Size()
	}

	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	if dir := pathpkg.Dir(remotePath); dir != "." && dir != "/" {
		if err := files.MkdirAll(dir); err != nil {
			return &TransferError{Op: "upload", Path: remotePath, Err: err}
		}
	}

	dst, err := files.Create(remotePath)
	if err != nil {
		return &TransferError{Op: "upload", Path: remotePath, Err: err}
	}

	defer func() { _ = dst.Close() }()

	if err := files.Chmod(remotePath, mode); err != nil {
		return &TransferError{Op: "upload", Path: remotePath, Err: err}
	}

	reader := transferReader(ctx, src, size, cfg.Progress)

	if _, err := io.Copy(dst, reader); err != nil {
		return &TransferError{Op: "upload", Path: remotePath, Err: err}
	}

	return nil
}

// DownloadFile copies a remote file to the local path, creating any missing
// parent directories locally.
func (s *Session) DownloadFile(ctx context.Context, remotePath, localPath string, opts ...FileOption) error {
	files, err := s.acquireFiles()
	if err != nil {
		return err
	}

	var cfg FileConfig
	for _, o := range opts {
		o(&cfg)
	}

	info, err := files.Stat(remotePath)
	if err != nil {
		return &TransferError{Op: "download", Path: remotePath, Err: err}
	}

	src, err := files.Open(remotePath)
	if err != nil {
		return &TransferError{Op: "download", Path: remotePath, Err: err}
	}

	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return &TransferError{Op: "download", Path: localPath, Err: err}
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return &TransferError{Op: "download", Path: localPath, Err: err}
	}

	defer func() { _ = dst.Close() }()

	mode := info.Mode()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	if err := os.Chmod(localPath, mode); err != nil {
		return &TransferError{Op: "download", Path: localPath, Err: err}
	}

	reader := transferReader(ctx, src, info.Size(), cfg.Progress)

	if _, err := io.Copy(dst, reader); err != nil {
		return &TransferError{Op: "download", Path: remotePath, Err: err}
	}

	return nil
}

// transferReader layers context checking and optional progress reporting
// over a transfer source.
func transferReader(ctx context.Context, src io.Reader, size int64, progress ProgressFunc) io.Reader {
	var reader io.Reader = &fileutil.ContextReader{Ctx: ctx, Reader: src}

	if progress != nil {
		reader = &fileutil.ProgressReader{Reader: reader, Total: size, Fn: progress}
	}

	return reader
}
