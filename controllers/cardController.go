package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"card-trader/catalog"
	"card-trader/models"
	"card-trader/services"
)

// AddCardHandler, UpdateCardHandler and RemoveCardHandler edit the caller's
// list of the given kind.
func AddCardHandler(svc *services.CardService, kind models.ListKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var card models.CardEntry
		if err := c.ShouldBindJSON(&card); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		added, err := svc.Add(ctx, userID, kind, card)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "card added to " + string(kind), "card": added})
	}
}

func UpdateCardHandler(svc *services.CardService, kind models.ListKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var upd models.CardUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.Update(ctx, userID, kind, c.Param("cardId"), upd); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "card updated in " + string(kind)})
	}
}

func RemoveCardHandler(svc *services.CardService, kind models.ListKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := svc.Remove(ctx, userID, kind, c.Param("cardId")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "card removed from " + string(kind)})
	}
}

const jsonContentType = "application/json; charset=utf-8"

func SearchCardsHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		raw, err := cat.Search(ctx, c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, jsonContentType, raw)
	}
}

func CardPrintsHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		raw, err := cat.Prints(ctx, c.Query("name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, jsonContentType, raw)
	}
}

func CardPriceHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		price, err := cat.Price(ctx, c.Query("name"), c.Query("set"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, price)
	}
}

func CardDetailsHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		raw, err := cat.Card(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, jsonContentType, raw)
	}
}
