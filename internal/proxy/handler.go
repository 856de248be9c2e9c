package proxy

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/statuscat/internal/cache"
	"github.com/any-hub/statuscat/internal/logging"
	"github.com/any-hub/statuscat/internal/retrieval"
	"github.com/any-hub/statuscat/internal/server"
)

// ImageContentType 是返回图片正文时使用的 Content-Type。
const ImageContentType = "image/jpeg"

// Retriever 抽象协调器的三个操作，便于测试注入。
type Retriever interface {
	Read(ctx context.Context, key cache.Key) ([]byte, retrieval.Status)
	Write(ctx context.Context, key cache.Key, blob []byte) retrieval.Status
	Remove(ctx context.Context, key cache.Key) retrieval.Status
}

// Handler 将已校验的 Key 按方法分派给协调器，并把结果状态映射为 HTTP 响应。
type Handler struct {
	retriever Retriever
	logger    *logrus.Logger
}

// NewHandler constructs a proxy handler around the retrieval coordinator.
func NewHandler(retriever Retriever, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		retriever: retriever,
		logger:    logger,
	}
}

// Handle 执行 GET/PUT/DELETE 对应的协调操作，任何结果都会输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx, key cache.Key) error {
	started := time.Now()
	requestID := server.RequestID(c)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch c.Method() {
	case fiber.MethodGet:
		blob, status := h.retriever.Read(ctx, key)
		h.logResult(c, key, requestID, status, started)
		return h.writeRead(c, blob, status)
	case fiber.MethodPut:
		// fasthttp 会复用请求缓冲区，写入前先拷贝正文。
		blob := append([]byte(nil), c.Body()...)
		status := h.retriever.Write(ctx, key, blob)
		h.logResult(c, key, requestID, status, started)
		return h.writeStatus(c, key, status)
	case fiber.MethodDelete:
		status := h.retriever.Remove(ctx, key)
		h.logResult(c, key, requestID, status, started)
		return h.writeStatus(c, key, status)
	default:
		// 路由中间件已拒绝其他方法，到达这里说明调用方绕过了 server.NewApp。
		return h.writeError(c, fiber.StatusInternalServerError, "internal_error")
	}
}

func (h *Handler) writeRead(c fiber.Ctx, blob []byte, status retrieval.Status) error {
	if !status.HasBody() {
		return h.writeError(c, fiber.StatusNotFound, "upstream_miss")
	}
	c.Set(fiber.HeaderContentType, ImageContentType)
	if status == retrieval.FromCache {
		c.Set("X-Statuscat-Cache-Hit", "true")
	} else {
		c.Set("X-Statuscat-Cache-Hit", "false")
	}
	return c.Status(fiber.StatusOK).Send(blob)
}

func (h *Handler) writeStatus(c fiber.Ctx, key cache.Key, status retrieval.Status) error {
	switch status {
	case retrieval.Created:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"code": key.String(), "result": status.String()})
	case retrieval.Deleted:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"code": key.String(), "result": status.String()})
	case retrieval.NotFound:
		return h.writeError(c, fiber.StatusNotFound, "not_found")
	case retrieval.WriteFailure:
		return h.writeError(c, fiber.StatusInternalServerError, "cache_write_failed")
	case retrieval.RemoveFailure:
		return h.writeError(c, fiber.StatusInternalServerError, "cache_remove_failed")
	default:
		return h.writeError(c, fiber.StatusInternalServerError, "internal_error")
	}
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	c fiber.Ctx,
	key cache.Key,
	requestID string,
	status retrieval.Status,
	started time.Time,
) {
	fields := logging.RequestFields(key.String(), c.Method(), requestID, status == retrieval.FromCache)
	fields["action"] = "proxy"
	fields["result"] = status.String()
	fields["elapsed_ms"] = time.Since(started).Milliseconds()

	switch status {
	case retrieval.WriteFailure, retrieval.RemoveFailure:
		h.logger.WithFields(fields).Error("proxy_failed")
	default:
		h.logger.WithFields(fields).Info("proxy_complete")
	}
}
