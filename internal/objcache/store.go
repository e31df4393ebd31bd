package objcache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store manages the file-backed object cache. Disk layout:
//
//	<CacheRoot>/<tool>/<key-with-slashes-as-subdirs>
//
// Every entry is a plain file; size and times come from the filesystem, and
// no contents are held in memory between calls, so the cache survives
// process restarts and is shared safely by multiple workers. Operations on
// the same (tool, key) are serialized through a per-entry lock; distinct
// entries never block each other.
type Store interface {
	// Exists reports whether the entry is present (file or directory).
	Exists(tool, key string) (bool, error)

	// IsDirectory reports whether the entry exists and is a directory.
	IsDirectory(tool, key string) (bool, error)

	// Read returns a streamable view of the entry. The per-entry lock is
	// held until the returned Reader is closed. Absent entries yield
	// ErrNotFound; directory entries yield ErrInvalidEntry.
	Read(ctx context.Context, tool, key string) (*ReadResult, error)

	// Write truncates and replaces the entry, creating parent directories
	// as needed. A nil body deletes the entry instead of storing it.
	Write(ctx context.Context, tool, key string, body io.Reader) (*Info, error)

	// Append opens the entry in append mode, creating it when absent.
	Append(ctx context.Context, tool, key string, body io.Reader) (*Info, error)

	// Delete recursively removes the entry (file or directory tree) and
	// reports whether anything existed.
	Delete(ctx context.Context, tool, key string) (bool, error)

	// Touch creates an empty entry (returning true) or strictly advances
	// the modification time of an existing one (returning false).
	Touch(ctx context.Context, tool, key string) (bool, error)

	// Stat returns the entry's point-in-time file info. It is not kept
	// fresh; call again to observe changes.
	Stat(tool, key string) (*Info, error)

	// GetObject reads and JSON-decodes the entry into out, reporting
	// whether the entry existed. Absence is not an error.
	GetObject(ctx context.Context, tool, key string, out any) (bool, error)

	// SetObject JSON-encodes value and writes it. A nil value deletes the
	// entry.
	SetObject(ctx context.Context, tool, key string, value any) error
}

// Info is a read-only snapshot of an entry's filesystem metadata, taken at
// the instant of the call.
type Info struct {
	Tool       string    `json:"tool"`
	Key        string    `json:"key"`
	FilePath   string    `json:"file_path"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ReadResult combines entry info with a body Reader. Closing the Reader
// releases the per-entry lock.
type ReadResult struct {
	Info   Info
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound marks an absent cache entry.
	ErrNotFound = errors.New("objcache: entry not found")

	// ErrInvalidEntry marks a key that denotes a directory where a leaf
	// entry was expected.
	ErrInvalidEntry = errors.New("objcache: entry is a directory")

	// ErrInvalidKey marks a key or tool that would escape the cache root.
	// This is a security boundary; nothing is touched on disk.
	ErrInvalidKey = errors.New("objcache: invalid cache key")

	// ErrToolRequired marks a call without a tool scope.
	ErrToolRequired = errors.New("objcache: tool is required")
)
