package main

import (
	"fms/src/boot"
	"fms/src/lib"
	"fms/src/middlewares"
	"fms/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	payments := app.Services.Payments
	g.
		POST("/payments", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			body.ClientIP = ctx.ClientIP()
			payment, err := payments.Create(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			payment, err := payments.Get(ctx.Request.Context(), middlewares.GetAuth(ctx), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		GET("/payments/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			img, err := payments.QRCode(ctx.Request.Context(), middlewares.GetAuth(ctx), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.Data(http.StatusOK, lib.QRCodeContentType, img)
		})
	return g
}
