package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/intraweb/intraweb/internal/objcache"
)

// Artifacts manages the immutable, revision-addressed artifact cache. A key
// embeds the logical path and the revision, so a cache hit never needs a
// freshness check: an outdated revision simply stops being referenced.
type Artifacts struct {
	store    objcache.Store
	pipeline *Pipeline
	group    singleflight.Group
}

// NewArtifacts wires the artifact cache over the shared object store.
func NewArtifacts(store objcache.Store, pipeline *Pipeline) *Artifacts {
	return &Artifacts{store: store, pipeline: pipeline}
}

// Key maps (logicalPath, revision) onto the store key space.
func Key(logicalPath, rev string) string {
	return path.Join("static", strings.TrimPrefix(path.Clean("/"+logicalPath), "/"), rev)
}

// Open returns a streamable artifact for (tool, logicalPath, revision),
// deriving it from sourcePath through the pipeline on first use. Concurrent
// requests for the same revision derive it exactly once; the per-flight
// group collapses them onto one writer and everyone reads the same bytes.
// The bool reports whether the artifact was already cached.
func (a *Artifacts) Open(ctx context.Context, tool, logicalPath, rev, contentType, sourcePath string) (*objcache.ReadResult, bool, error) {
	key := Key(logicalPath, rev)

	result, err := a.store.Read(ctx, tool, key)
	if err == nil {
		return result, true, nil
	}
	if !errors.Is(err, objcache.ErrNotFound) {
		return nil, false, err
	}

	_, err, _ = a.group.Do(tool+"::"+key, func() (any, error) {
		if ok, err := a.store.Exists(tool, key); err != nil {
			return nil, err
		} else if ok {
			return nil, nil
		}

		src, err := os.Open(sourcePath)
		if err != nil {
			return nil, fmt.Errorf("open source %s: %w", sourcePath, err)
		}
		defer src.Close()

		var buf bytes.Buffer
		if err := a.pipeline.Process(contentType, logicalPath, src, &buf); err != nil {
			return nil, fmt.Errorf("process %s: %w", logicalPath, err)
		}
		if _, err := a.store.Write(ctx, tool, key, &buf); err != nil {
			return nil, fmt.Errorf("store artifact %s: %w", key, err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, false, err
	}

	result, err = a.store.Read(ctx, tool, key)
	return result, false, err
}
