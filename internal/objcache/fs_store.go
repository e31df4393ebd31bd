package objcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NewStore builds the disk cache rooted at cacheRoot; the whole process
// shares one instance.
func NewStore(cacheRoot string) (Store, error) {
	if cacheRoot == "" {
		return nil, errors.New("cache root required")
	}

	abs, err := filepath.Abs(cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	return &fileStore{
		root:  abs,
		locks: make(map[string]*entryLock),
	}, nil
}

// fileStore serializes same-entry operations through a refcounted lock table
// while leaving distinct entries fully concurrent.
type fileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Exists(tool, key string) (bool, error) {
	filePath, _, err := s.entryPath(tool, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *fileStore) IsDirectory(tool, key string) (bool, error) {
	filePath, _, err := s.entryPath(tool, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (s *fileStore) Read(ctx context.Context, tool, key string) (*ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(lockKey)

	info, err := os.Stat(filePath)
	if err != nil {
		unlock()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		unlock()
		return nil, ErrInvalidEntry
	}

	f, err := os.Open(filePath)
	if err != nil {
		unlock()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Info:   s.entryInfo(tool, key, filePath, info),
		Reader: &lockedReader{file: f, release: unlock},
	}, nil
}

func (s *fileStore) Write(ctx context.Context, tool, key string, body io.Reader) (*Info, error) {
	// A nil body means "remove", mirroring SetObject(nil).
	if body == nil {
		_, err := s.Delete(ctx, tool, key)
		return nil, err
	}

	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(lockKey)
	defer unlock()

	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		return nil, ErrInvalidEntry
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".cache-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return nil, err
	}

	return s.statInfo(tool, key, filePath)
}

func (s *fileStore) Append(ctx context.Context, tool, key string, body io.Reader) (*Info, error) {
	if body == nil {
		return nil, errors.New("objcache: append body required")
	}

	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(lockKey)
	defer unlock()

	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		return nil, ErrInvalidEntry
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	_, err = copyWithContext(ctx, f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	return s.statInfo(tool, key, filePath)
}

func (s *fileStore) Delete(ctx context.Context, tool, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return false, err
	}

	unlock := s.lockEntry(lockKey)
	defer unlock()

	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if err := os.RemoveAll(filePath); err != nil {
		return false, err
	}
	return true, nil
}

func (s *fileStore) Touch(ctx context.Context, tool, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return false, err
	}

	unlock := s.lockEntry(lockKey)
	defer unlock()

	info, err := os.Stat(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return false, err
		}
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return false, err
		}
		return true, f.Close()
	case err != nil:
		return false, err
	case info.IsDir():
		return false, ErrInvalidEntry
	}

	// Revisions resolve at second granularity, so the advance must be
	// observable at that resolution.
	now := time.Now()
	if now.Unix() <= info.ModTime().Unix() {
		now = info.ModTime().Add(time.Second)
	}
	if err := os.Chtimes(filePath, now, now); err != nil {
		return false, err
	}
	return false, nil
}

func (s *fileStore) Stat(tool, key string) (*Info, error) {
	filePath, lockKey, err := s.entryPath(tool, key)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(lockKey)
	defer unlock()

	return s.statInfo(tool, key, filePath)
}

func (s *fileStore) statInfo(tool, key, filePath string) (*Info, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	result := s.entryInfo(tool, key, filePath, info)
	return &result, nil
}

func (s *fileStore) entryInfo(tool, key, filePath string, info fs.FileInfo) Info {
	// Creation time is not portably exposed by the fs package; the entry's
	// modification time stands in for both snapshot fields.
	return Info{
		Tool:       tool,
		Key:        key,
		FilePath:   filePath,
		SizeBytes:  info.Size(),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}
}

// lockEntry serializes operations on one entry; the refcount drops the slot
// once the last holder releases.
func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// entryPath validates the tool/key pair and maps it into the cache tree.
// Escape attempts fail with ErrInvalidKey before anything touches the disk.
func (s *fileStore) entryPath(tool, key string) (string, string, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return "", "", ErrToolRequired
	}
	if strings.ContainsAny(tool, `/\`) || tool == "." || tool == ".." {
		return "", "", ErrInvalidKey
	}

	if key == "" || strings.HasPrefix(key, "/") || filepath.IsAbs(key) || strings.Contains(key, `\`) {
		return "", "", ErrInvalidKey
	}
	segments := strings.Split(key, "/")
	cleaned := make([]string, 0, len(segments))
	for _, segment := range segments {
		switch segment {
		case "", ".":
			continue
		case "..":
			return "", "", ErrInvalidKey
		}
		cleaned = append(cleaned, segment)
	}
	if len(cleaned) == 0 {
		return "", "", ErrInvalidKey
	}
	rel := strings.Join(cleaned, "/")

	toolRoot := filepath.Join(s.root, tool)
	filePath := filepath.Join(toolRoot, filepath.FromSlash(rel))
	if filePath != toolRoot && !strings.HasPrefix(filePath, toolRoot+string(filepath.Separator)) {
		return "", "", ErrInvalidKey
	}
	return filePath, tool + "::" + rel, nil
}

// lockedReader holds the per-entry lock until closed, so a slow consumer
// never races a concurrent writer on the same entry.
type lockedReader struct {
	file    *os.File
	release func()
	once    sync.Once
}

func (r *lockedReader) Read(p []byte) (int, error) {
	return r.file.Read(p)
}

func (r *lockedReader) Seek(offset int64, whence int) (int64, error) {
	return r.file.Seek(offset, whence)
}

func (r *lockedReader) Close() error {
	err := r.file.Close()
	r.once.Do(r.release)
	return err
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
