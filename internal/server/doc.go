// Package server assembles the HTTP surface: the authorization middleware
// that fronts every request, the dynamic servlet dispatcher, the static
// asset pipeline with revision-addressed caching, and the uniform error
// framing. Paths shaped /<tool>/data/<servlet> are dynamic; everything else
// is static; /-/ paths are diagnostics and bypass the gate.
package server
