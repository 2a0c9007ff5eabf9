package remotelabtest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	pathpkg "path"
	"sync"
	"time"

	"github.com/remotelab/remotelab"
)

// MemFileChannel implements remotelab.FileChannel over an in-memory map.
type MemFileChannel struct {
	mu     sync.Mutex
	files  map[string][]byte
	modes  map[string]os.FileMode
	dirs   map[string]bool
	closed bool
}

var _ remotelab.FileChannel = (*MemFileChannel)(nil)

// NewMemFileChannel creates an empty in-memory file channel.
func NewMemFileChannel() *MemFileChannel {
	return &MemFileChannel{
		files: make(map[string][]byte),
		modes: make(map[string]os.FileMode),
		dirs:  make(map[string]bool),
	}
}

// Put seeds a file without going through Create.
func (m *MemFileChannel) Put(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path] = append([]byte(nil), content...)
}

// Get returns the content of a stored file.
func (m *MemFileChannel) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[path]

	return content, ok
}

// HasDir reports whether MkdirAll was called for path.
func (m *MemFileChannel) HasDir(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dirs[path]
}

// Open returns a reader over the stored file content.
func (m *MemFileChannel) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

// Create returns a writer that stores its content on Close.
func (m *MemFileChannel) Create(path string) (io.WriteCloser, error) {
	return &memFile{channel: m, path: path}, nil
}

// MkdirAll records the directory.
func (m *MemFileChannel) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs[path] = true

	return nil
}

// Stat returns file metadata for a stored file.
func (m *MemFileChannel) Stat(path string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}

	mode, ok := m.modes[path]
	if !ok {
		mode = 0o644
	}

	return memFileInfo{name: pathpkg.Base(path), size: int64(len(content)), mode: mode}, nil
}

// Chmod records the file mode.
func (m *MemFileChannel) Chmod(path string, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modes[path] = mode

	return nil
}

// Remove deletes a stored file.
func (m *MemFileChannel) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("remove %s: %w", path, fs.ErrNotExist)
	}

	delete(m.files, path)
	delete(m.modes, path)

	return nil
}

// Close marks the channel closed.
func (m *MemFileChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// Closed reports whether the channel has been closed.
func (m *MemFileChannel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

type memFile struct {
	channel *MemFileChannel
	path    string
	buf     bytes.Buffer
}

func (f *memFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	f.channel.mu.Lock()
	defer f.channel.mu.Unlock()

	f.channel.files[f.path] = append([]byte(nil), f.buf.Bytes()...)

	return nil
}

type memFileInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() os.FileMode  { return i.mode }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }
