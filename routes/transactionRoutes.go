package routes

import (
	"github.com/gin-gonic/gin"

	"card-trader/controllers"
	"card-trader/middleware"
)

func TransactionRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, d Deps) {
	trades := d.Services.Trades

	api.GET("/transactions", requireAuth, controllers.GetTransactionsHandler(trades))

	tx := api.Group("/transaction", requireAuth)
	{
		tx.POST("/create",
			middleware.Idempotency(d.Cache, d.Idempotency, d.Log),
			controllers.CreateTransactionHandler(trades),
		)
		tx.PUT("/:id/confirm", controllers.ConfirmTransactionHandler(trades))
		tx.POST("/:id/review", controllers.ReviewTransactionHandler(trades))
	}
}
