package assets

import (
	"io"
	"mime"
	"path"
	"strings"

	"github.com/intraweb/intraweb/internal/revision"
)

// Transform rewrites one payload of a given content type.
type Transform func(logicalPath string, r io.Reader, w io.Writer) error

// Pipeline applies the per-content-type transform before an artifact enters
// the cache. Content types without a transform pass through untouched. The
// strategy map keyed by content type is the extension point; new types
// register a Transform instead of subclassing anything.
type Pipeline struct {
	transforms map[string]Transform
}

// NewPipeline wires the built-in CSS/HTML transforms plus the JS
// preprocessor collaborator.
func NewPipeline(tracker *revision.Tracker, js Preprocessor) *Pipeline {
	if js == nil {
		js = Passthrough{}
	}
	p := &Pipeline{}
	p.transforms = map[string]Transform{
		"text/css": func(_ string, r io.Reader, w io.Writer) error {
			return TransformCSS(r, w)
		},
		"text/html": func(logicalPath string, r io.Reader, w io.Writer) error {
			return TransformHTML(tracker, logicalPath, r, w)
		},
		"application/javascript": func(_ string, r io.Reader, w io.Writer) error {
			return js.Process(r, w)
		},
	}
	return p
}

// Process runs the transform registered for contentType, or copies the
// payload unchanged when none is.
func (p *Pipeline) Process(contentType, logicalPath string, r io.Reader, w io.Writer) error {
	if transform, ok := p.transforms[mediaType(contentType)]; ok {
		return transform(logicalPath, r, w)
	}
	_, err := io.Copy(w, r)
	return err
}

func mediaType(contentType string) string {
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
}

// ContentTypeFor maps a logical path to its Content-Type header value.
func ContentTypeFor(logicalPath string) string {
	ext := strings.ToLower(path.Ext(logicalPath))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
