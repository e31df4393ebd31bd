package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/intraweb/intraweb/internal/config"
	"github.com/intraweb/intraweb/internal/revision"
)

const pageMarkup = `<html>
<head>
<link rel="stylesheet" href="style.css">
<script src="app.js"></script>
</head>
<body>hello</body>
</html>
`

func TestAssetFlowStampsAndRedirects(t *testing.T) {
	site := newTestSite(t, singleUserConfig(config.Permission{Privilege: "access-tool", Tool: "reports"}))

	pageTime := time.Unix(0x68aa0000, 0)
	cssTime := pageTime.Add(time.Hour)
	site.writeAsset(t, "reports/index.html", pageMarkup, pageTime)
	site.writeAsset(t, "reports/style.css", "body { color: red; }", cssTime)
	site.writeAsset(t, "reports/app.js", "console.log(1);\n", pageTime)

	cssRev := revision.Encode(cssTime)

	// The page revision follows its newest dependency.
	page := site.get(t, "alice", "/reports/index.html", nil)
	if page.Status != 200 {
		t.Fatalf("expected 200 for page, got %d", page.Status)
	}
	if !strings.Contains(string(page.Body), `href="style.css/`+cssRev+`"`) {
		t.Fatalf("stylesheet ref not stamped: %s", page.Body)
	}
	if !strings.Contains(string(page.Body), `src="app.js/`+revision.Encode(pageTime)+`"`) {
		t.Fatalf("script ref not stamped: %s", page.Body)
	}

	// The stamped URL serves with immutable caching headers.
	css := site.get(t, "alice", "/reports/style.css/"+cssRev, nil)
	if css.Status != 200 {
		t.Fatalf("expected 200 for stamped css, got %d", css.Status)
	}
	if cc := css.header("Cache-Control"); cc != "public, max-age=31536000" {
		t.Fatalf("unexpected Cache-Control %q", cc)
	}

	// Touching the stylesheet moves the revision; the old URL redirects.
	newTime := cssTime.Add(time.Hour)
	site.writeAsset(t, "reports/style.css", "body { color: blue; }", newTime)

	stale := site.get(t, "alice", "/reports/style.css/"+cssRev, nil)
	if stale.Status != 301 {
		t.Fatalf("expected 301 for stale revision, got %d", stale.Status)
	}
	if loc := stale.header("Location"); loc != "/reports/style.css/"+revision.Encode(newTime) {
		t.Fatalf("unexpected redirect target %q", loc)
	}

	// The page follows along: its stamp now names the new revision.
	page2 := site.get(t, "alice", "/reports/index.html", nil)
	if !strings.Contains(string(page2.Body), `href="style.css/`+revision.Encode(newTime)+`"`) {
		t.Fatalf("page stamp did not follow the dependency: %s", page2.Body)
	}
}

func TestAssetFlowConditionalRequest(t *testing.T) {
	site := newTestSite(t, singleUserConfig(config.Permission{Privilege: "access-tool", Tool: "reports"}))

	mtime := time.Unix(0x68aa0000, 0)
	site.writeAsset(t, "reports/style.css", "body{}", mtime)
	rev := revision.Encode(mtime)

	resp := site.get(t, "alice", "/reports/style.css/"+rev, map[string]string{
		"If-Modified-Since": mtime.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"),
	})
	if resp.Status != 304 {
		t.Fatalf("expected 304, got %d", resp.Status)
	}
	if len(resp.Body) != 0 {
		t.Fatalf("expected empty body, got %q", resp.Body)
	}
}

func TestAssetFlowDeclaredRevisionWins(t *testing.T) {
	cfg := singleUserConfig(config.Permission{Privilege: "access-tool", Tool: "reports"})
	cfg.TemplateRevisions = map[string]string{"/reports/style.css": "abc123"}
	site := newTestSite(t, cfg)

	site.writeAsset(t, "reports/style.css", "body{}", time.Unix(0x68aa0000, 0))

	// The declared revision overrides the mtime-derived one.
	resp := site.get(t, "alice", "/reports/style.css/abc123", nil)
	if resp.Status != 200 {
		t.Fatalf("expected 200 for declared revision, got %d", resp.Status)
	}

	derived := site.get(t, "alice", "/reports/style.css/"+revision.Encode(time.Unix(0x68aa0000, 0)), nil)
	if derived.Status != 301 {
		t.Fatalf("expected 301 for the shadowed mtime revision, got %d", derived.Status)
	}
}
