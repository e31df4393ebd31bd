// Package assets holds the static-asset compression pipeline. Each content
// type gets its own transform (CSS comment/whitespace stripping, HTML
// minification with revision-stamped asset links, delegated JS minification)
// applied once per revision; the result lands in the object cache under an
// immutable revision-addressed key. A trailing gzip filter encodes eligible
// responses on the way out.
package assets
