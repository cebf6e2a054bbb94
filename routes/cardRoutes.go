package routes

import (
	"github.com/gin-gonic/gin"

	"card-trader/controllers"
)

// CardRoutes exposes the catalog lookups; they need no account.
func CardRoutes(api *gin.RouterGroup, d Deps) {
	cards := api.Group("/cards")
	{
		cards.GET("/search", controllers.SearchCardsHandler(d.Catalog))
		cards.GET("/prints", controllers.CardPrintsHandler(d.Catalog))
		cards.GET("/price", controllers.CardPriceHandler(d.Catalog))
		cards.GET("/:id", controllers.CardDetailsHandler(d.Catalog))
	}
}
