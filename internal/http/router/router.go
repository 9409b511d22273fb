package router

import (
	"github.com/gin-gonic/gin"

	"signalhub.app/correlator/internal/http/handler"
)

type Handlers struct {
	Signals  *handler.SignalHandler
	Groups   *handler.GroupHandler
	Webhooks *handler.WebhookHandler
}

func SetupRoutes(router *gin.Engine, handlers Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		SignalRouter(v1.Group("/signals"), handlers.Signals)
		GroupRouter(v1.Group("/groups"), handlers.Groups)
		v1.POST("/webhooks/:source", handlers.Webhooks.Receive)
	}
}
