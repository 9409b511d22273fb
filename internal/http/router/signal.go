package router

import (
	"github.com/gin-gonic/gin"

	"signalhub.app/correlator/internal/http/handler"
)

func SignalRouter(router *gin.RouterGroup, handler *handler.SignalHandler) {
	router.POST("", handler.Ingest)
	router.GET("/:id/triage", handler.Triage)
}
