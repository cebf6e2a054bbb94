package routes

import (
	"github.com/gin-gonic/gin"

	"card-trader/controllers"
)

func WebSocketRoutes(r *gin.Engine, d Deps) {
	r.GET("/ws", controllers.WebSocketHandler(d.Hub, d.Tokens))
}
