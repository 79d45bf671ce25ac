package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrEmpty is returned by Backend.Read when nothing has been persisted yet.
var ErrEmpty = errors.New("no persisted session data")

// Backend is the persistence contract the store is built on.
type Backend interface {
	// Read returns the persisted document, or ErrEmpty if there is none.
	Read() ([]byte, error)

	// AtomicWrite replaces the persisted document. After a crash the
	// document is either the old or the new content, never a mix.
	AtomicWrite(data []byte) error
}

// Locker is implemented by backends that can exclude other processes
// from writing while a read-modify-write cycle is in progress.
type Locker interface {
	Lock() (unlock func(), err error)
}

// FileBackend persists the document to a single file using
// write-temp-fsync-rename.
type FileBackend struct {
	Path string
	Perm fs.FileMode
}

// NewFileBackend returns a backend writing to path with mode 0600.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path, Perm: 0o600}
}

func (b *FileBackend) String() string {
	return b.Path
}

// Read returns the file content. A missing file is ErrEmpty; a file that
// exists but is empty is returned as-is so the caller treats it as corrupt.
func (b *FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	return data, nil
}

// AtomicWrite writes data to a temporary file in the same directory, syncs
// it, renames it over the target and syncs the directory.
func (b *FileBackend) AtomicWrite(data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	perm := b.Perm
	if perm == 0 {
		perm = 0o600
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, b.Path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true

	return syncDir(dir)
}

// syncDir makes the rename durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open store directory: %w", err)
	}
	defer d.Close()
	if err := unix.Fsync(int(d.Fd())); err != nil && !errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("failed to sync store directory: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on <Path>.lock.
func (b *FileBackend) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(b.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	f, err := os.OpenFile(b.Path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock store: %w", err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// MemoryBackend keeps the document in memory. It is used by tests and by
// callers that want an ephemeral control plane.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	ReadErr  error
	WriteErr error
	Writes   int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) String() string {
	return "memory"
}

func (m *MemoryBackend) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.data == nil {
		return nil, ErrEmpty
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) AtomicWrite(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data = append([]byte(nil), data...)
	m.Writes++
	return nil
}

// SetData replaces the stored bytes directly.
func (m *MemoryBackend) SetData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// SetWriteErr makes subsequent writes fail with err.
func (m *MemoryBackend) SetWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteErr = err
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Locker  = (*FileBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)
