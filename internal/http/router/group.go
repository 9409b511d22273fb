package router

import (
	"github.com/gin-gonic/gin"

	"signalhub.app/correlator/internal/http/handler"
)

func GroupRouter(router *gin.RouterGroup, handler *handler.GroupHandler) {
	router.GET("", handler.List)
	router.GET("/:id", handler.Get)
}
