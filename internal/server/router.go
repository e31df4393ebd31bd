package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/assets"
	"github.com/intraweb/intraweb/internal/authz"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger      *logrus.Logger
	Gate        *authz.Gate
	Dynamic     *DynamicHandler
	Static      *StaticHandler
	ListenPort  int
	GzipMinSize int
	GzipLevel   int
}

const (
	contextKeyDecision  = "_intraweb_decision"
	contextKeyRequestID = "_intraweb_request_id"
)

// Remote identity headers, primary then forwarded fallback. The reverse
// proxy in front of the server is trusted to set them.
const (
	headerRemoteUser    = "Remote-User"
	headerForwardedUser = "X-Forwarded-User"
)

// NewApp builds the Fiber application: request-ID + authorization
// middleware, the two-branch dispatcher, and the trailing gzip filter.
// Every unexpected failure ends as a generic framed 500.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("authorization gate is required")
	}
	if opts.Dynamic == nil || opts.Static == nil {
		return nil, errors.New("dispatch handlers are required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
				return renderError(c, fiberErr.Code, ErrorFrame{
					Title:   "Request Failed",
					Message: fiberErr.Message,
				})
			}
			opts.Logger.WithError(err).WithFields(logrus.Fields{
				"action": "panic_boundary",
				"path":   string(c.Request().URI().Path()),
			}).Error("unhandled failure")
			return renderInternal(c)
		},
	})

	app.Use(recover.New())
	app.Use(assets.GzipFilter(opts.GzipMinSize, opts.GzipLevel))
	app.Use(authorizationMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		if isDynamicPath(string(c.Request().URI().Path())) {
			return opts.Dynamic.Handle(c)
		}
		return opts.Static.Handle(c)
	})

	return app, nil
}

// authorizationMiddleware stamps a request ID, resolves the principal and
// runs the gate before anything else sees the request.
func authorizationMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		tool := firstSegment(path)
		if tool == "" {
			return renderNotFound(c, "No tool named in the request path.")
		}

		decision := opts.Gate.Check(principalFrom(c), tool)
		switch decision.State {
		case authz.StateAuthorized:
			c.Locals(contextKeyDecision, decision)
			return c.Next()
		case authz.StateForbidden, authz.StateAccountNotFound:
			// Same response either way; the gate already logged which.
			return renderForbidden(c)
		default:
			return renderInternal(c)
		}
	}
}

func principalFrom(c fiber.Ctx) string {
	if raw := c.Request().Header.Peek(headerRemoteUser); len(raw) > 0 {
		return strings.TrimSpace(string(raw))
	}
	if raw := c.Request().Header.Peek(headerForwardedUser); len(raw) > 0 {
		return strings.TrimSpace(string(raw))
	}
	return ""
}

// DecisionFromContext returns the authorization decision stored by the
// middleware.
func DecisionFromContext(c fiber.Ctx) (authz.Decision, bool) {
	if value := c.Locals(contextKeyDecision); value != nil {
		if decision, ok := value.(authz.Decision); ok {
			return decision, true
		}
	}
	return authz.Decision{}, false
}

// RequestID returns the identifier stamped by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return strings.ToLower(path)
}

// isDynamicPath matches /<tool>/data/... paths.
func isDynamicPath(path string) bool {
	segments := splitPath(path)
	return len(segments) >= 2 && segments[1] == "data"
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
