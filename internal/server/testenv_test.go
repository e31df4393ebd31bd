package server

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/assets"
	"github.com/intraweb/intraweb/internal/authz"
	"github.com/intraweb/intraweb/internal/config"
	"github.com/intraweb/intraweb/internal/objcache"
	"github.com/intraweb/intraweb/internal/resource"
	"github.com/intraweb/intraweb/internal/revision"
	"github.com/intraweb/intraweb/internal/servlet"
)

// testEnv is the fully wired application over temporary trees. Tests add
// files under WebRoot and servlets to Registry before issuing requests.
type testEnv struct {
	App       *fiber.App
	Registry  *servlet.Registry
	WebRoot   string
	CacheRoot string
	Logger    *logrus.Logger
}

func newTestEnv(t *testing.T, accounts []config.AccountConfig) *testEnv {
	t.Helper()

	webRoot := t.TempDir()
	cacheRoot := t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	guard := authz.NewGuard(true)
	gate := authz.NewGate(authz.GateOptions{
		Resolver:    authz.NewStaticDirectory(accounts),
		Logger:      logger,
		Guard:       guard,
		RootTool:    "admin",
		PublicTools: []string{"assets", "default"},
	})

	registry := servlet.NewRegistry()
	resolver := resource.NewResolver("", webRoot, "default")
	tracker := revision.NewTracker(resolver, nil)
	pipeline := assets.NewPipeline(tracker, assets.Passthrough{})
	store, err := objcache.NewStore(cacheRoot)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	app, err := NewApp(AppOptions{
		Logger: logger,
		Gate:   gate,
		Dynamic: &DynamicHandler{
			Registry: registry,
			Guard:    guard,
			Logger:   logger,
		},
		Static: &StaticHandler{
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
		t.Fatalf("NewApp: %v", err)
	}

	return &testEnv{App: app, Registry: registry, WebRoot: webRoot, CacheRoot: cacheRoot, Logger: logger}
}

// developerAccounts grants alice access to the reports tool.
func developerAccounts() []config.AccountConfig {
	return []config.AccountConfig{
		{
			Name: "alice",
			Permissions: []config.Permission{
				{Privilege: "access-tool", Tool: "reports"},
			},
		},
	}
}

func (env *testEnv) writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	full := filepath.Join(env.WebRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return full
}
