package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/statuscat/internal/cache"
)

func TestRouterPassesValidKeyToProxy(t *testing.T) {
	app := newTestApp(t)

	for _, method := range []string{fiber.MethodGet, fiber.MethodPut, fiber.MethodDelete} {
		req := httptest.NewRequest(method, "http://statuscat.local/404", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusNoContent {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("%s: expected 204 status, got %d (body=%s)", method, resp.StatusCode, string(body))
		}
		if app.storage.lastKey != cache.Key("404") {
			t.Fatalf("%s: expected key 404, got %q", method, app.storage.lastKey)
		}
		if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
			t.Fatalf("expected X-Request-ID header to be set")
		}
	}
}

func TestRouterRejectsInvalidKeys(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/abc", "/12", "/1234", "/", "/404/extra", "/40a"} {
		req := httptest.NewRequest("GET", "http://statuscat.local"+path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400 status, got %d", path, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !bytes.Contains(body, []byte(`"invalid_status_code"`)) {
			t.Fatalf("%s: expected invalid_status_code error, got %s", path, string(body))
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("%s: expected X-Request-ID on rejected request", path)
		}
	}
	if app.storage.calls != 0 {
		t.Fatalf("proxy should not be invoked for invalid keys, got %d calls", app.storage.calls)
	}
}

func TestRouterRejectsUnsupportedMethods(t *testing.T) {
	app := newTestApp(t)

	for _, method := range []string{fiber.MethodPost, fiber.MethodPatch, fiber.MethodHead, fiber.MethodOptions} {
		req := httptest.NewRequest(method, "http://statuscat.local/200", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405 status, got %d", method, resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != AllowedMethods {
			t.Fatalf("%s: unexpected Allow header %q", method, allow)
		}
	}
	if app.storage.calls != 0 {
		t.Fatalf("proxy should not be invoked for unsupported methods, got %d calls", app.storage.calls)
	}
}

func TestRouterDiagnosticsBypassKeyValidation(t *testing.T) {
	app := newTestApp(t)
	app.Get("/-/ping", func(c fiber.Ctx) error {
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "http://statuscat.local/-/ping", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for diagnostics path, got %d", resp.StatusCode)
	}
	if app.storage.calls != 0 {
		t.Fatalf("diagnostics path should not reach proxy")
	}
}

func TestNewAppRequiresDependencies(t *testing.T) {
	if _, err := NewApp(AppOptions{Proxy: &proxyRecorder{}}); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewApp(AppOptions{Logger: logrus.New()}); err == nil {
		t.Fatalf("expected error without proxy")
	}
	if _, err := NewApp(AppOptions{Logger: logrus.New(), Proxy: &proxyRecorder{}, BodyLimit: -1}); err == nil {
		t.Fatalf("expected error for negative body limit")
	}
}

type testApp struct {
	*fiber.App
	storage *proxyRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := &proxyRecorder{}
	app, err := NewApp(AppOptions{
		Logger: logger,
		Proxy:  recorder,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	return &testApp{App: app, storage: recorder}
}

type proxyRecorder struct {
	lastKey cache.Key
	calls   int
}

func (p *proxyRecorder) Handle(c fiber.Ctx, key cache.Key) error {
	p.calls++
	p.lastKey = key
	return c.SendStatus(fiber.StatusNoContent)
}
