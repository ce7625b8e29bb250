package main

import (
	"errors"
	"net/http"
	"sisaplus/src/core"
	"sisaplus/src/store"

	"github.com/gin-gonic/gin"
)

// respondCoreError maps the core error taxonomy onto HTTP responses.
// Storage failures are never echoed to the client.
func respondCoreError(ctx *gin.Context, err error) {
	var validationErr *core.ValidationError
	var unavailableErr *core.FoodUnavailableError
	var transitionErr *core.InvalidTransitionError
	var unauthorizedErr *core.UnauthorizedActionError
	var malformedErr *core.MalformedTokenError
	var expiredErr *core.TokenExpiredError
	var notFoundErr *core.BookingNotFoundError
	var storageErr *store.StorageError

	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validationErr.Fields})
	case errors.As(err, &unavailableErr):
		if unavailableErr.Reason == core.ReasonNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "reason": unavailableErr.Reason})
			return
		}
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": unavailableErr.Reason})
	case errors.As(err, &transitionErr):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "from": transitionErr.From, "to": transitionErr.To})
	case errors.As(err, &unauthorizedErr):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &malformedErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &expiredErr):
		ctx.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &storageErr):
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error while processing request"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error while processing request"})
	}
}
