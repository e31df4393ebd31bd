package assets

import (
	"io"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

// Preprocessor is the external JavaScript minifier collaborator. Only the
// stream-in/stream-out contract matters; the implementation is opaque.
type Preprocessor interface {
	Process(r io.Reader, w io.Writer) error
}

// MinifyPreprocessor is the default Preprocessor, backed by tdewolff/minify.
type MinifyPreprocessor struct {
	m *minify.M
}

// NewMinifyPreprocessor builds the default JS minifier.
func NewMinifyPreprocessor() *MinifyPreprocessor {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)
	return &MinifyPreprocessor{m: m}
}

func (p *MinifyPreprocessor) Process(r io.Reader, w io.Writer) error {
	return p.m.Minify("application/javascript", w, r)
}

// Passthrough copies JavaScript unchanged; used when no minifier is wired
// and in tests that assert byte-identical bodies.
type Passthrough struct{}

func (Passthrough) Process(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}
