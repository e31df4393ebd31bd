package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/assets"
	"github.com/intraweb/intraweb/internal/authz"
	"github.com/intraweb/intraweb/internal/config"
	"github.com/intraweb/intraweb/internal/logging"
	"github.com/intraweb/intraweb/internal/objcache"
	"github.com/intraweb/intraweb/internal/resource"
	"github.com/intraweb/intraweb/internal/revision"
	"github.com/intraweb/intraweb/internal/server"
	"github.com/intraweb/intraweb/internal/server/routes"
	"github.com/intraweb/intraweb/internal/servlet"
	"github.com/intraweb/intraweb/internal/version"
)

// cliOptions collects the parsed CLI flags so tests can inject them.
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run executes the selected mode and returns the process exit code.
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "failed to initialize logging: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["accounts"] = len(cfg.Accounts)
		fields["template_revisions"] = len(cfg.TemplateRevisions)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("configuration is valid")
		return 0
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["accounts"] = len(cfg.Accounts)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_root"] = cfg.Global.CacheRoot
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("configuration loaded")

	if err := startHTTPServer(cfg, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP server failed: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags parses the arguments and resolves the config path from the
// flag, the INTRAWEB_CONFIG environment variable, or the default.
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("intraweb", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "config file path (default ./config.toml, overridable via INTRAWEB_CONFIG)")
	fs.BoolVar(&checkOnly, "check-config", false, "validate the configuration and exit")
	fs.BoolVar(&showVer, "version", false, "print version information")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	path := os.Getenv("INTRAWEB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// buildApp wires config through the cache, pipeline, gate and registry into
// a ready Fiber application. Startup order is config, object store, resource
// resolver, revision tracker, asset pipeline, gate, registry, app; every
// request shares these instances.
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, error) {
	store, err := objcache.NewStore(cfg.Global.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("initialize object cache: %w", err)
	}

	resolver := resource.NewResolver(cfg.Global.SiteRoot, cfg.Global.WebRoot, cfg.Global.Theme)
	tracker := revision.NewTracker(resolver, cfg.TemplateRevisions)
	pipeline := assets.NewPipeline(tracker, assets.NewMinifyPreprocessor())
	artifacts := assets.NewArtifacts(store, pipeline)

	guard := authz.NewGuard(cfg.Global.SerializeAccounts)
	gate := authz.NewGate(authz.GateOptions{
		Resolver:    authz.NewStaticDirectory(cfg.Accounts),
		Logger:      logger,
		Guard:       guard,
		RootTool:    cfg.Global.RootTool,
		PublicTools: cfg.Global.PublicTools(),
	})

	registry := servlet.NewRegistry()
	registerStatusServlet(registry, cfg)

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
			Artifacts: artifacts,
			Logger:    logger,
		},
		ListenPort:  cfg.Global.ListenPort,
		GzipMinSize: cfg.Global.GzipMinSize,
		GzipLevel:   cfg.Global.GzipLevel,
	})
	if err != nil {
		return nil, err
	}

	routes.RegisterToolRoutes(app, routes.ToolsOptions{
		Registry:    registry,
		PublicTools: cfg.Global.PublicTools(),
		RootTool:    cfg.Global.RootTool,
	})

	return app, nil
}

var processStart = time.Now()

// registerStatusServlet wires the built-in admin status endpoint at
// /<root-tool>/data/status.
func registerStatusServlet(registry *servlet.Registry, cfg *config.Config) {
	registry.MustRegister(servlet.Descriptor{
		Tool:        cfg.Global.RootTool,
		Name:        "status",
		Description: "process status and version",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			body, err := json.Marshal(map[string]any{
				"version":        version.Full(),
				"uptime_seconds": int64(time.Since(processStart).Seconds()),
				"accounts":       len(cfg.Accounts),
				"tools":          registry.Tools(),
			})
			if err != nil {
				return servlet.Response{}, err
			}
			return servlet.Response{Body: body}, nil
		},
	})
}

func startHTTPServer(cfg *config.Config, logger *logrus.Logger) error {
	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	port := cfg.Global.ListenPort
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("server starting")

	return app.Listen(fmt.Sprintf(":%d", port))
}
