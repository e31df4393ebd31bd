package objcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// GetObject reads and JSON-decodes the entry into out. An absent entry is
// reported as (false, nil) rather than an error, so callers can treat the
// cache as optional.
func (s *fileStore) GetObject(ctx context.Context, tool, key string, out any) (bool, error) {
	result, err := s.Read(ctx, tool, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer result.Reader.Close()

	raw, err := io.ReadAll(result.Reader)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cached object %s/%s: %w", tool, key, err)
	}
	return true, nil
}

// SetObject JSON-encodes value and stores it; a nil value deletes the entry
// instead.
func (s *fileStore) SetObject(ctx context.Context, tool, key string, value any) error {
	if value == nil {
		_, err := s.Delete(ctx, tool, key)
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached object %s/%s: %w", tool, key, err)
	}
	_, err = s.Write(ctx, tool, key, bytes.NewReader(raw))
	return err
}
