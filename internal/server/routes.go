package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/config"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/handler"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/middleware"
)

type Handlers struct {
	Products       *handler.ProductHandler
	AdminProducts  *handler.AdminProductHandler
	Classification *handler.ClassificationHandler
	AuditLogs      *handler.AuditLogHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	//公開
	h.Products.RegisterRoutes(e)
	h.Classification.RegisterRoutes(e)

	//管理者のみ
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	h.AdminProducts.RegisterRoutes(admin)
	h.AuditLogs.RegisterRoutes(admin)
}
