package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"card-trader/services"
)

// GetMatchesHandler counts the overlap between the caller's lists and :username's.
func GetMatchesHandler(svc *services.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		summary, err := svc.Matches(ctx, userID, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// GetMatchingCardsHandler lists the cards each side could give the other.
func GetMatchingCardsHandler(svc *services.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		cards, err := svc.MatchingCards(ctx, userID, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cards)
	}
}
