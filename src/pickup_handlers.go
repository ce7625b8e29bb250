package main

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"sisaplus/src/types"
	"sisaplus/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

func pickupHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/pickup/:id/token", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			code, token, err := eng.IssueToken(ctx, params.ID, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"code": code, "token": token}})
		}).
		GET("/pickup/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			code, token, err := eng.IssueToken(ctx, params.ID, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			qrc, err := qrcode.New(code)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filename := utils.ShareFilename(token.FoodTitle)
			filepath := path.Join(os.TempDir(), fmt.Sprintf("%s.jpeg", filename))
			if err := qrc.Save(filepath); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, "pickup-pass.jpeg")
		}).
		POST("/pickup/scan", func(ctx *gin.Context) {
			var body types.ScanPickupRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := eng.ValidateAndComplete(ctx, body.Code, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/pickup/:id/reject", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := eng.Reject(ctx, params.ID, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		})
	return g
}
