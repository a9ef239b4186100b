package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/afe-bench/internal/api/middleware"
)

// RegisterRoutes 注册 /api 路由
func RegisterRoutes(r gin.IRouter, h *Handler, apiKeys []string) {
	g := r.Group("/api")
	g.Use(middleware.RequestTracing())
	if len(apiKeys) > 0 {
		g.Use(middleware.APIKeyAuth(apiKeys, h.logger))
		h.logger.Info("api authentication enabled", zap.Int("keys", len(apiKeys)))
	}

	g.GET("/status", h.Status)
	g.GET("/ports", h.ListPorts)

	cmd := g.Group("/commands")
	cmd.POST("/voltage", h.SendVoltage)
	cmd.POST("/afe-count", h.SendAFECount)
	cmd.POST("/range-voltage", h.SendRangeVoltage)
	cmd.POST("/spi-mode", h.SendSPIMode)

	g.POST("/pec/pec15", h.CalcPEC15)
	g.POST("/pec/pec10", h.CalcPEC10)

	g.GET("/history", h.ListHistory)
	g.DELETE("/history", h.ClearHistory)

	g.POST("/scripts/run", h.RunScript)
}
