package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/intraweb/intraweb/internal/assets"
	"github.com/intraweb/intraweb/internal/logging"
	"github.com/intraweb/intraweb/internal/resource"
	"github.com/intraweb/intraweb/internal/revision"
)

// StaticHandler serves every non-/data/ path through the revision-stamped
// asset pipeline: stale-revision URLs redirect to the canonical one, fresh
// ones stream the immutable cached artifact.
type StaticHandler struct {
	Resolver  *resource.Resolver
	Tracker   *revision.Tracker
	Artifacts *assets.Artifacts
	Logger    *logrus.Logger
}

func (h *StaticHandler) Handle(c fiber.Ctx) error {
	requested := path.Clean("/" + string(c.Request().URI().Path()))

	logical, requestRev, sourcePath, ok := h.locate(requested)
	if !ok {
		return renderNotFound(c, "No such resource: "+requested+".")
	}

	current, err := h.Tracker.RevisionOf(logical)
	if err != nil {
		if errors.Is(err, revision.ErrUnknownResource) {
			return renderNotFound(c, "No such resource: "+requested+".")
		}
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"action": "static",
			"path":   logical,
		}).Error("revision derivation failed")
		return renderInternal(c)
	}

	// A mismatched revision means the client followed a stale URL; the
	// redirect repoints it at the current artifact. Nothing is cached for
	// the stale revision.
	if requestRev != "" && requestRev != current {
		location := logical + "/" + current
		h.Logger.WithFields(logrus.Fields{
			"action": "revision_redirect",
			"path":   logical,
			"from":   requestRev,
			"to":     current,
		}).Info("stale revision")
		c.Set(fiber.HeaderLocation, location)
		return c.Status(fiber.StatusMovedPermanently).Send(nil)
	}

	// A revision-pinned URL that got this far is fresh, so a conditional
	// request answers 304. Unpinned URLs fall through: their content can
	// change underneath the client.
	if requestRev != "" && len(c.Request().Header.Peek(fiber.HeaderIfModifiedSince)) > 0 {
		return c.Status(fiber.StatusNotModified).Send(nil)
	}

	contentType := assets.ContentTypeFor(logical)
	tool := firstSegment(logical)

	var ctx context.Context = c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, hit, err := h.Artifacts.Open(ctx, tool, logical, current, contentType, sourcePath)
	if err != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"action": "static",
			"path":   logical,
			"rev":    current,
		}).Error("artifact derivation failed")
		return renderInternal(c)
	}
	defer result.Reader.Close()

	decision, _ := DecisionFromContext(c)
	fields := logging.RequestFields(tool, decision.Principal, string(decision.State), hit)
	fields["action"] = "static"
	fields["path"] = logical
	fields["rev"] = current
	h.Logger.WithFields(fields).Debug("asset served")

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	c.Set(fiber.HeaderExpires, time.Now().Add(365*24*time.Hour).UTC().Format(http.TimeFormat))
	if info, err := os.Stat(sourcePath); err == nil {
		c.Set(fiber.HeaderLastModified, info.ModTime().UTC().Format(http.TimeFormat))
	}
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(result.Info.SizeBytes, 10))

	c.Status(fiber.StatusOK)
	_, err = io.Copy(c.Response().BodyWriter(), result.Reader)
	return err
}

// locate resolves the requested path, peeling an optional trailing revision
// segment. Returns the logical path, the revision from the URL (may be
// empty), and the source file.
func (h *StaticHandler) locate(requested string) (logical, requestRev, sourcePath string, ok bool) {
	if src, found := h.Resolver.Resolve(requested); found {
		return requested, "", src, true
	}

	idx := strings.LastIndexByte(requested, '/')
	if idx <= 0 {
		return "", "", "", false
	}
	last := requested[idx+1:]
	if !revision.IsIdentifier(last) {
		return "", "", "", false
	}
	stripped := requested[:idx]
	if src, found := h.Resolver.Resolve(stripped); found {
		return stripped, last, src, true
	}
	return "", "", "", false
}
