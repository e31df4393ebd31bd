package assets

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/klauspost/compress/gzip"
)

// compressibleTypes lists non-text media types still worth encoding.
var compressibleTypes = map[string]struct{}{
	"application/javascript": {},
	"application/json":       {},
	"application/xml":        {},
	"application/xhtml+xml":  {},
	"image/svg+xml":          {},
}

// Compressible reports whether a content type benefits from gzip. Binary
// and already-compressed payloads (images, archives) are never encoded.
func Compressible(contentType string) bool {
	mt := mediaType(contentType)
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	_, ok := compressibleTypes[mt]
	return ok
}

// GzipFilter is the final response filter: after the handler has produced a
// body, it gzip-encodes the payload when the client advertises gzip, the
// body is at least minSize bytes, and the content type is compressible.
// Applies uniformly to asset bodies, JSON payloads and error frames.
func GzipFilter(minSize, level int) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		accept := string(c.Request().Header.Peek(fiber.HeaderAcceptEncoding))
		if !strings.Contains(accept, "gzip") {
			return nil
		}

		resp := c.Response()
		if len(resp.Header.Peek(fiber.HeaderContentEncoding)) > 0 {
			return nil
		}
		if !Compressible(string(resp.Header.ContentType())) {
			return nil
		}

		body := resp.Body()
		if len(body) < minSize {
			return nil
		}

		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			zw = gzip.NewWriter(&buf)
		}
		if _, err := zw.Write(body); err != nil {
			return nil
		}
		if err := zw.Close(); err != nil {
			return nil
		}

		resp.SetBodyRaw(append([]byte(nil), buf.Bytes()...))
		resp.Header.Set(fiber.HeaderContentEncoding, "gzip")
		resp.Header.Add(fiber.HeaderVary, fiber.HeaderAcceptEncoding)
		resp.Header.SetContentLength(buf.Len())
		return nil
	}
}
