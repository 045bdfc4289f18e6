package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	if err := RegisterValidators(); err != nil {
		slog.Error("Failed to register request validators", "error", err)
	}

	api := router.Group("/api")
	{
		api.GET("/ping", handler.Ping)

		api.GET("/exchange-rate", handler.ExchangeRate)
		api.POST("/exchange-rate", handler.ExchangeRate)

		api.GET("/stock-data", handler.StockData)
		api.GET("/price", handler.Price)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
