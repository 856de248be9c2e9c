package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// StatusInfo 描述 /-/status 返回的运行时摘要。
type StatusInfo struct {
	Version      string `json:"version"`
	Origin       string `json:"origin"`
	CacheDir     string `json:"cache_dir"`
	SingleFlight bool   `json:"single_flight"`
}

// RegisterDiagnosticsRoutes 暴露 /-/status 与 /-/metrics 诊断接口，供 SRE 排查使用。
// metrics 为空时不注册 /-/metrics。
func RegisterDiagnosticsRoutes(app *fiber.App, info StatusInfo, metrics http.Handler) {
	if app == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.JSON(info)
	})

	if metrics != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(metrics))
	}
}
