package main

import (
	"context"
	"log"
	"net/http"
	"sisaplus/src/lib"
	"sisaplus/src/types"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
)

func foodHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/foods", func(ctx *gin.Context) {
			var filters types.FoodsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			foods, err := eng.ListAvailable(ctx, filters, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": foods, "count": len(foods)})
		}).
		GET("/foods/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			food, err := eng.GetFood(ctx, params.ID)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": food})
		}).
		POST("/foods", func(ctx *gin.Context) {
			var body types.CreateFoodRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			food, err := eng.CreateFood(ctx, userId, &body)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			// One-shot expiry at the deadline; the periodic sweep
			// catches anything this misses.
			foodId := food.ID
			if _, err := lib.CreateOneTimeCronJob(
				gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(food.ExpiresAt)),
				gocron.NewTask(func() {
					if err := eng.MarkExpired(context.Background(), foodId); err != nil {
						log.Printf("Error expiring Food [%d]: %s\n", foodId, err.Error())
					}
				}),
			); err != nil {
				log.Printf("Could not schedule expiry for Food [%d]: %s\n", foodId, err.Error())
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": food})
		}).
		DELETE("/foods/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := eng.DeleteFood(ctx, params.ID, userId); err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
