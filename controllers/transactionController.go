package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/models"
	"card-trader/services"
)

type createTransactionRequest struct {
	SellerID    string             `json:"sellerId" binding:"required"`
	BuyerWants  []models.CardEntry `json:"buyerWants"`
	SellerWants []models.CardEntry `json:"sellerWants"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func CreateTransactionHandler(svc *services.TradeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req createTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		sellerID, err := primitive.ObjectIDFromHex(req.SellerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		id, err := svc.Create(ctx, services.CreateTrade{
			InitiatorID:    userID,
			CounterpartyID: sellerID,
			BuyerWants:     req.BuyerWants,
			SellerWants:    req.SellerWants,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "transaction created", "transactionId": id})
	}
}

func GetTransactionsHandler(svc *services.TradeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		txs, err := svc.List(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

func ConfirmTransactionHandler(svc *services.TradeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "transaction")
		if !ok {
			return
		}

		// settlement touches both profiles, give it more room
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		completed, err := svc.Confirm(ctx, id, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "transaction confirmed", "transactionCompleted": completed})
	}
}

func ReviewTransactionHandler(svc *services.TradeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "transaction")
		if !ok {
			return
		}

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.AddReview(ctx, id, userID, req.Rating, req.Comment); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "review saved"})
	}
}
