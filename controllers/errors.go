package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/middleware"
	"card-trader/models"
	"card-trader/services"
)

const requestTimeout = 5 * time.Second

// respondError writes the status matching err's kind. Unexpected errors are
// attached to the context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	var conflict *services.IdentityConflict
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "validation failed", "problems": conflict.Problems})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// currentUser returns the authenticated caller or answers 401.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return userID, ok
}

// objectIDParam parses a path id. Malformed ids cannot name anything, so they
// get the same 404 as unknown ones.
func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return primitive.NilObjectID, false
	}
	return id, true
}
