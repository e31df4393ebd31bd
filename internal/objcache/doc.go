// Package objcache implements the file-backed object cache shared by the
// static asset pipeline and dynamic tool handlers. Entries are addressed by
// (tool, key), mapped to CacheRoot/<tool>/<key> files, and guarded by a
// per-entry lock so same-entry operations serialize while distinct entries
// run concurrently. The filesystem is the sole owner of cached data: every
// call reopens the file, which keeps the cache valid across process restarts
// and multiple workers.
package objcache
