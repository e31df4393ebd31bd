package assets

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func gzipApp(t *testing.T, contentType string, body []byte) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(GzipFilter(256, 6))
	app.Get("/payload", func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(body)
	})
	return app
}

func TestGzipSkipsSmallBodies(t *testing.T) {
	app := gzipApp(t, "text/plain", bytes.Repeat([]byte("a"), 50))
	req := httptest.NewRequest("GET", "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Fatalf("50-byte body must not be encoded")
	}
}

func TestGzipEncodesEligibleBodies(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefghij"), 50)
	app := gzipApp(t, "text/plain", payload)
	req := httptest.NewRequest("GET", "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("500-byte text body should be encoded")
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader error: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("decoded body mismatch")
	}
	if !strings.Contains(resp.Header.Get("Vary"), "Accept-Encoding") {
		t.Fatalf("Vary header missing")
	}
}

func TestGzipRespectsMissingAcceptEncoding(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefghij"), 50)
	app := gzipApp(t, "text/plain", payload)

	resp, err := app.Test(httptest.NewRequest("GET", "/payload", nil))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Fatalf("body must stay plain without Accept-Encoding: gzip")
	}
	raw, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(raw, payload) {
		t.Fatalf("plain body mismatch")
	}
}

func TestGzipNeverEncodesImages(t *testing.T) {
	app := gzipApp(t, "image/png", bytes.Repeat([]byte{0x89, 0x50, 0x4e, 0x47}, 500))
	req := httptest.NewRequest("GET", "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Fatalf("image bodies must never be encoded")
	}
}

func TestCompressible(t *testing.T) {
	cases := map[string]bool{
		"text/html; charset=utf-8": true,
		"text/css":                 true,
		"application/javascript":   true,
		"application/json":         true,
		"image/svg+xml":            true,
		"image/png":                false,
		"application/gzip":         false,
		"application/octet-stream": false,
	}
	for contentType, want := range cases {
		if got := Compressible(contentType); got != want {
			t.Fatalf("Compressible(%q) = %v, want %v", contentType, got, want)
		}
	}
}
