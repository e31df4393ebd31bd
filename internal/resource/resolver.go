// Package resource maps logical asset paths onto the static file trees. A
// deployment may carry a site tree that shadows the shipped web tree, and a
// "$theme/..." prefix resolves against the configured theme.
package resource

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Resolver searches the site override tree before the base web tree.
type Resolver struct {
	siteRoot string
	webRoot  string
	theme    string
}

// NewResolver builds a resolver; siteRoot may be empty when the deployment
// carries no override tree.
func NewResolver(siteRoot, webRoot, theme string) *Resolver {
	return &Resolver{
		siteRoot: siteRoot,
		webRoot:  webRoot,
		theme:    strings.ToLower(strings.TrimSpace(theme)),
	}
}

// Theme returns the active theme name.
func (r *Resolver) Theme() string {
	return r.theme
}

// Resolve maps a logical path to a filesystem path, reporting false when no
// regular file exists in either tree. Paths that try to climb out of the
// trees never resolve.
func (r *Resolver) Resolve(logicalPath string) (string, bool) {
	rel, ok := r.normalize(logicalPath)
	if !ok {
		return "", false
	}

	for _, root := range []string{r.siteRoot, r.webRoot} {
		if root == "" {
			continue
		}
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return candidate, true
	}
	return "", false
}

// normalize cleans the logical path, expands the $theme prefix, and rejects
// escapes.
func (r *Resolver) normalize(logicalPath string) (string, bool) {
	logicalPath = strings.TrimSpace(logicalPath)
	if logicalPath == "" {
		return "", false
	}

	cleaned := path.Clean("/" + logicalPath)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", false
	}

	if segment, rest, _ := strings.Cut(cleaned, "/"); segment == "$theme" {
		if r.theme == "" || rest == "" {
			return "", false
		}
		cleaned = r.theme + "/" + rest
	}
	return cleaned, true
}
