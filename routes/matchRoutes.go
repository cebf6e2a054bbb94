package routes

import (
	"github.com/gin-gonic/gin"

	"card-trader/controllers"
)

func MatchRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, d Deps) {
	matches := api.Group("/matches", requireAuth)
	{
		matches.GET("/:username", controllers.GetMatchesHandler(d.Services.Matches))
		matches.GET("/:username/cards", controllers.GetMatchingCardsHandler(d.Services.Matches))
	}
}
