package routes

import (
	"github.com/gin-gonic/gin"

	"card-trader/controllers"
	"card-trader/models"
)

func UserRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, d Deps) {
	api.POST("/register", controllers.RegisterHandler(d.Services.Accounts))
	api.POST("/login", controllers.LoginHandler(d.Services.Accounts))
	api.GET("/profile/:username", controllers.GetPublicProfileHandler(d.Services.Accounts))

	user := api.Group("/user", requireAuth)
	{
		user.GET("/profile/me", controllers.GetMyProfileHandler(d.Services.Accounts))
		user.GET("/reviews", controllers.GetMyReviewsHandler(d.Services.Trades))

		for _, kind := range []models.ListKind{models.WantList, models.SellList} {
			path := "/" + string(kind)
			user.POST(path, controllers.AddCardHandler(d.Services.Cards, kind))
			user.PUT(path+"/:cardId", controllers.UpdateCardHandler(d.Services.Cards, kind))
			user.DELETE(path+"/:cardId", controllers.RemoveCardHandler(d.Services.Cards, kind))
		}
	}
}
