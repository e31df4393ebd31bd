package server

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/authz"
	"github.com/intraweb/intraweb/internal/servlet"
)

// DynamicHandler routes /tool/data/servlet[/extra] calls into the servlet
// registry. Every servlet body runs behind the account guard because
// handlers reach the same non-concurrent backend the gate uses.
type DynamicHandler struct {
	Registry *servlet.Registry
	Guard    *authz.Guard
	Logger   *logrus.Logger
}

// Handle resolves and invokes the servlet, or answers 404/405 per the
// registry's capability declarations.
func (h *DynamicHandler) Handle(c fiber.Ctx) error {
	segments := splitPath(string(c.Request().URI().Path()))
	if len(segments) < 3 || segments[2] == "" {
		return renderNotFound(c, "No servlet named in the request path.")
	}
	tool := strings.ToLower(segments[0])
	name := strings.ToLower(segments[2])
	extra := strings.Join(segments[3:], "/")

	descriptor, ok := h.Registry.Lookup(tool, name)
	if !ok {
		return renderNotFound(c, "No such servlet: "+tool+"/"+name+".")
	}

	method := c.Method()
	handler := descriptor.HandlerFor(method)
	if handler == nil {
		methods := descriptor.Methods()
		if len(methods) == 0 {
			return renderNotFound(c, "The servlet "+tool+"/"+name+" declares no handlers.")
		}
		return renderMethodNotAllowed(c, strings.Join(methods, ", "))
	}

	decision, _ := DecisionFromContext(c)
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return renderBadRequest(c, "Malformed query string.")
	}

	req := servlet.Request{
		Tool:      tool,
		Name:      name,
		Extra:     extra,
		Method:    method,
		Query:     query,
		Body:      append([]byte(nil), c.Body()...),
		Principal: decision.Principal,
	}

	fields := logrus.Fields{
		"action":     "dispatch",
		"tool":       tool,
		"servlet":    name,
		"method":     method,
		"request_id": RequestID(c),
	}
	h.Logger.WithFields(fields).Debug("servlet start")

	var ctx context.Context = c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	resp, err := func() (servlet.Response, error) {
		// Deferred so a panicking handler cannot strand the guard.
		h.Guard.Lock()
		defer h.Guard.Unlock()
		return handler(ctx, req)
	}()
	fields["duration_ms"] = time.Since(started).Milliseconds()

	if err != nil {
		h.Logger.WithError(err).WithFields(fields).Error("servlet failed")
		return renderInternal(c)
	}

	if resp.Status == 0 {
		resp.Status = fiber.StatusOK
	}
	fields["status"] = resp.Status
	h.Logger.WithFields(fields).Info("servlet end")

	if resp.Location != "" {
		c.Set(fiber.HeaderLocation, resp.Location)
	}
	contentType := resp.ContentType
	if contentType == "" && len(resp.Body) > 0 {
		contentType = fiber.MIMEApplicationJSON
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	return c.Status(resp.Status).Send(resp.Body)
}
