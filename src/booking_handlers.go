package main

import (
	"net/http"
	"sisaplus/src/config"
	"sisaplus/src/types"
	"time"

	"github.com/gin-gonic/gin"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var pickupTime *time.Time
			if body.PickupTime != nil {
				parsed, err := time.Parse(config.TIME_PARSE_FORMAT, *body.PickupTime)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				pickupTime = &parsed
			}
			userId := ctx.GetUint("id")
			booking, err := eng.CreateBooking(ctx, body.FoodID, userId, body.Message, pickupTime)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings, err := eng.ListForReceiver(ctx, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/requests", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings, err := eng.ListForDonor(ctx, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		PUT("/bookings/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateBookingStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := eng.SetStatus(ctx, params.ID, userId, types.BookingStatus(body.Status))
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		DELETE("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := eng.DeleteBooking(ctx, params.ID, userId); err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
