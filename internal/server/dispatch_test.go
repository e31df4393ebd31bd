package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/intraweb/intraweb/internal/servlet"
)

func TestDispatchUnknownServletIsNotFound(t *testing.T) {
	env := newTestEnv(t, developerAccounts())

	req := httptest.NewRequest("GET", "/reports/data/nope", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDispatchMissingServletNameIsNotFound(t *testing.T) {
	env := newTestEnv(t, developerAccounts())

	req := httptest.NewRequest("GET", "/reports/data", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDispatchUndeclaredMethodIs405WithAllow(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			return servlet.Response{Body: []byte(`{"ok":true}`)}, nil
		},
		OnDelete: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			return servlet.Response{Status: 200}, nil
		},
	})

	req := httptest.NewRequest("POST", "/reports/data/summary", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 405 {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, DELETE" {
		t.Fatalf("unexpected Allow header %q", allow)
	}
}

func TestDispatchServletWithoutHandlersIsNotFound(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "stub",
	})

	req := httptest.NewRequest("POST", "/reports/data/stub", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for a handler-less servlet, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "" {
		t.Fatalf("no Allow header expected, got %q", allow)
	}
}

func TestDispatchInvokesHandlerWithRequestParts(t *testing.T) {
	env := newTestEnv(t, developerAccounts())

	var got servlet.Request
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnPost: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			got = req
			return servlet.Response{
				Status:      201,
				Body:        []byte(`{"created":true}`),
				Location:    "/reports/data/summary/42",
				ContentType: "application/json",
			}, nil
		},
	})

	req := httptest.NewRequest("POST", "/Reports/data/Summary/2026/08?limit=5", strings.NewReader(`{"q":1}`))
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/reports/data/summary/42" {
		t.Fatalf("unexpected Location %q", loc)
	}

	if got.Tool != "reports" || got.Name != "summary" {
		t.Fatalf("unexpected servlet identity %q/%q", got.Tool, got.Name)
	}
	if got.Extra != "2026/08" {
		t.Fatalf("unexpected extra path %q", got.Extra)
	}
	if got.Query.Get("limit") != "5" {
		t.Fatalf("unexpected query %v", got.Query)
	}
	if string(got.Body) != `{"q":1}` {
		t.Fatalf("unexpected body %q", got.Body)
	}
	if got.Principal != "alice" {
		t.Fatalf("unexpected principal %q", got.Principal)
	}
}

func TestDispatchDefaultsStatusAndContentType(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			return servlet.Response{Body: []byte(`{"rows":[]}`)}, nil
		},
	})

	req := httptest.NewRequest("GET", "/reports/data/summary", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected Content-Type %q", ct)
	}
}

func TestDispatchMalformedQueryIsBadRequest(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			return servlet.Response{}, nil
		},
	})

	req := httptest.NewRequest("GET", "/reports/data/summary?a;b=1", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDispatchHandlerErrorIsFramed500(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			return servlet.Response{}, errors.New("backend unavailable")
		},
	})

	req := httptest.NewRequest("GET", "/reports/data/summary", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	var frame ErrorFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	// The handler's failure detail stays in the log, not the response.
	if strings.Contains(frame.Message, "backend unavailable") {
		t.Fatalf("internal detail leaked into response: %+v", frame)
	}
}

func TestDispatchPanicIsFramed500(t *testing.T) {
	env := newTestEnv(t, developerAccounts())
	env.Registry.MustRegister(servlet.Descriptor{
		Tool: "reports",
		Name: "summary",
		OnGet: func(ctx context.Context, req servlet.Request) (servlet.Response, error) {
			panic("boom")
		},
	})

	req := httptest.NewRequest("GET", "/reports/data/summary", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := env.App.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
