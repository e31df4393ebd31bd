// Package revision computes the cache-busting revision of static resources.
// A revision is the lowercase hex encoding of a Unix timestamp: the latest
// known modification time of the resource and, for markup, of every CSS/JS
// dependency it references. Because revisions are embedded in asset URLs, a
// touched dependency changes the URL and stale client caches refetch.
package revision

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Resolver maps a logical asset path to a filesystem path; see the resource
// package for the site/web tree search.
type Resolver interface {
	Resolve(logicalPath string) (string, bool)
}

// ErrUnknownResource marks a logical path with no file behind it and no
// declared revision.
var ErrUnknownResource = errors.New("revision: unknown resource")

var (
	cssRefPattern = regexp.MustCompile(`href="([^"]+\.css)"`)
	jsRefPattern  = regexp.MustCompile(`src="([^"]+\.js)"`)
)

// Tracker derives revisions from filesystem mtimes, with declared overrides
// for resources (template-backed pages) whose freshness the filesystem
// cannot witness.
type Tracker struct {
	resolver  Resolver
	overrides map[string]string
}

// NewTracker builds a tracker; overrides maps logical paths to declared hex
// revisions and may be nil.
func NewTracker(resolver Resolver, overrides map[string]string) *Tracker {
	normalized := make(map[string]string, len(overrides))
	for logical, rev := range overrides {
		normalized[normalizeLogical(logical)] = rev
	}
	return &Tracker{resolver: resolver, overrides: normalized}
}

// RevisionOf returns the current revision identifier of the logical path.
func (t *Tracker) RevisionOf(logicalPath string) (string, error) {
	logical := normalizeLogical(logicalPath)
	if rev, ok := t.overrides[logical]; ok {
		return rev, nil
	}

	filePath, ok := t.resolver.Resolve(logical)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownResource, logicalPath)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filePath, err)
	}
	latest := info.ModTime()

	if isMarkup(logical) {
		depLatest, err := t.dependencyModTime(logical, filePath)
		if err != nil {
			return "", err
		}
		if depLatest.After(latest) {
			latest = depLatest
		}
	}

	return Encode(latest), nil
}

// dependencyModTime scans the markup for CSS/JS references and returns the
// newest mtime among those that resolve. References that do not resolve are
// served by some other route and are skipped, not errors.
func (t *Tracker) dependencyModTime(logical, filePath string) (time.Time, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return time.Time{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	var latest time.Time
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		for _, ref := range ScanRefs(scanner.Text()) {
			depLogical := resolveRef(logical, ref)
			depPath, ok := t.resolver.Resolve(depLogical)
			if !ok {
				continue
			}
			info, err := os.Stat(depPath)
			if err != nil {
				continue
			}
			if info.ModTime().After(latest) {
				latest = info.ModTime()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("scan %s: %w", filePath, err)
	}
	return latest, nil
}

// ScanRefs extracts the CSS href and JS src references of one markup line.
func ScanRefs(line string) []string {
	var refs []string
	for _, match := range cssRefPattern.FindAllStringSubmatch(line, -1) {
		refs = append(refs, match[1])
	}
	for _, match := range jsRefPattern.FindAllStringSubmatch(line, -1) {
		refs = append(refs, match[1])
	}
	return refs
}

// Encode renders a timestamp as a lowercase-hex revision identifier.
func Encode(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 16)
}

// IsIdentifier reports whether s has the shape of a revision identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// resolveRef turns a possibly relative reference into a logical path rooted
// like its referrer.
func resolveRef(referrer, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return normalizeLogical(ref)
	}
	return normalizeLogical(path.Join(path.Dir(referrer), ref))
}

func normalizeLogical(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}

func isMarkup(logical string) bool {
	switch strings.ToLower(path.Ext(logical)) {
	case ".html", ".htm":
		return true
	}
	return false
}
