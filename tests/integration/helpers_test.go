package integration

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/assets"
	"github.com/intraweb/intraweb/internal/authz"
	"github.com/intraweb/intraweb/internal/config"
	"github.com/intraweb/intraweb/internal/objcache"
	"github.com/intraweb/intraweb/internal/resource"
	"github.com/intraweb/intraweb/internal/revision"
	"github.com/intraweb/intraweb/internal/server"
	"github.com/intraweb/intraweb/internal/servlet"
)

// testSite is the fully wired server over temporary web and cache trees.
type testSite struct {
	App       *fiber.App
	Registry  *servlet.Registry
	WebRoot   string
	CacheRoot string
}

// newTestSite wires the whole stack the way startup does, with the JS
// preprocessor passed through so bodies stay predictable.
func newTestSite(t *testing.T, cfg config.Config) *testSite {
	t.Helper()

	webRoot := t.TempDir()
	cacheRoot := t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := objcache.NewStore(cacheRoot)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	resolver := resource.NewResolver("", webRoot, "default")
	tracker := revision.NewTracker(resolver, cfg.TemplateRevisions)
	pipeline := assets.NewPipeline(tracker, assets.Passthrough{})

	guard := authz.NewGuard(true)
	gate := authz.NewGate(authz.GateOptions{
		Resolver:    authz.NewStaticDirectory(cfg.Accounts),
		Logger:      logger,
		Guard:       guard,
		RootTool:    "admin",
		PublicTools: []string{"assets", "default"},
	})

	registry := servlet.NewRegistry()

	app, err := server.NewApp(server.AppOptions{
		Logger: logger,
		Gate:   gate,
		Dynamic: &server.DynamicHandler{
			Registry: registry,
			Guard:    guard,
			Logger:   logger,
		},
		Static: &server.StaticHandler{
			Resolver:  resolver,
			Tracker:   tracker,
			Artifacts: assets.NewArtifacts(store, pipeline),
			Logger:    logger,
		},
		ListenPort:  5000,
		GzipMinSize: 256,
		GzipLevel:   6,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}

	return &testSite{App: app, Registry: registry, WebRoot: webRoot, CacheRoot: cacheRoot}
}

func singleUserConfig(permissions ...config.Permission) config.Config {
	return config.Config{
		Accounts: []config.AccountConfig{
			{Name: "alice", Permissions: permissions},
		},
	}
}

func (s *testSite) writeAsset(t *testing.T, rel, content string, mtime time.Time) string {
	t.Helper()
	full := filepath.Join(s.WebRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(full, mtime, mtime); err != nil {
			t.Fatalf("chtimes %s: %v", rel, err)
		}
	}
	return full
}

func (s *testSite) get(t *testing.T, principal, target string, headers map[string]string) *httpResponse {
	t.Helper()
	return s.request(t, "GET", principal, target, nil, headers)
}

func (s *testSite) request(t *testing.T, method, principal, target string, body io.Reader, headers map[string]string) *httpResponse {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if principal != "" {
		req.Header.Set("Remote-User", principal)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	return &httpResponse{Status: resp.StatusCode, Header: resp.Header, Body: raw}
}

type httpResponse struct {
	Status int
	Header map[string][]string
	Body   []byte
}

func (r *httpResponse) header(key string) string {
	values := r.Header[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
