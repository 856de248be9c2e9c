package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/statuscat/internal/cache"
)

// ProxyHandler describes the component that serves a validated cache key.
// It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, cache.Key) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, cache.Key) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, key cache.Key) error {
	return f(c, key)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger *logrus.Logger
	Proxy  ProxyHandler
	// BodyLimit 限制 PUT 正文大小（字节），应与回源的 MaxBlobSize 一致；0 使用 fiber 默认值。
	BodyLimit int
}

// AllowedMethods 是对外开放的方法集合，同时用于 405 响应的 Allow 头。
const AllowedMethods = "GET, PUT, DELETE"

const (
	contextKeyCacheKey  = "_statuscat_key"
	contextKeyRequestID = "_statuscat_request_id"
)

// NewApp builds a Fiber application with key validation middleware and
// structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}

	if opts.BodyLimit < 0 {
		return nil, fmt.Errorf("invalid body limit: %d", opts.BodyLimit)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		BodyLimit:     opts.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		key, ok := getKeyFromContext(c)
		if !ok {
			return renderInvalidKey(c, opts.Logger, c.Path())
		}
		return opts.Proxy.Handle(c, key)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，校验方法与路径中的状态码。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		if !isAllowedMethod(c.Method()) {
			return renderMethodNotAllowed(c, opts.Logger)
		}

		key, err := cache.ParseKey(strings.TrimPrefix(path, "/"))
		if err != nil {
			return renderInvalidKey(c, opts.Logger, path)
		}

		c.Locals(contextKeyCacheKey, key)
		return c.Next()
	}
}

func isAllowedMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodPut, fiber.MethodDelete:
		return true
	default:
		return false
	}
}

func renderMethodNotAllowed(c fiber.Ctx, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action":     "method_check",
		"method":     c.Method(),
		"request_id": RequestID(c),
	}).Warn("method not allowed")

	c.Set(fiber.HeaderAllow, AllowedMethods)
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"error": "method_not_allowed",
	})
}

func renderInvalidKey(c fiber.Ctx, logger *logrus.Logger, path string) error {
	logger.WithFields(logrus.Fields{
		"action":     "key_check",
		"path":       path,
		"request_id": RequestID(c),
	}).Warn("invalid status code")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid_status_code",
	})
}

func getKeyFromContext(c fiber.Ctx) (cache.Key, bool) {
	if value := c.Locals(contextKeyCacheKey); value != nil {
		if key, ok := value.(cache.Key); ok {
			return key, true
		}
	}
	return "", false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
