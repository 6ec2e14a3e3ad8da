package main

import (
	"fms/src/apperror"
	"fms/src/boot"
	"fms/src/lib"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// callbackHandlers are called by the payment providers. They carry no bearer
// token; every request is authenticated by its provider signature instead.
func callbackHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	payments := app.Services.Payments
	g.
		GET("/payments/vnpay/return", func(ctx *gin.Context) {
			result, err := app.VNPay.VerifyReturn(ctx.Request.URL.Query())
			if err != nil {
				respondError(ctx, err)
				return
			}
			status, err := payments.Complete(ctx.Request.Context(), *result)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"payment_id": result.PaymentID,
				"success":    result.Success,
				"status":     status,
			})
		}).
		GET("/payments/vnpay/ipn", func(ctx *gin.Context) {
			result, err := app.VNPay.VerifyReturn(ctx.Request.URL.Query())
			if err != nil {
				ctx.JSON(http.StatusOK, lib.VNPayIPNResponse("", err))
				return
			}
			status, err := payments.Complete(ctx.Request.Context(), *result)
			if err != nil {
				log.Printf("[VNPay] IPN for %s: %s\n", result.PaymentID, err.Error())
			}
			ctx.JSON(http.StatusOK, lib.VNPayIPNResponse(status, err))
		}).
		POST("/payments/momo/ipn", func(ctx *gin.Context) {
			body, err := io.ReadAll(ctx.Request.Body)
			if err != nil {
				respondError(ctx, apperror.Wrap(err, apperror.Validation, apperror.CodeInvalidRequest, "could not read body"))
				return
			}
			result, err := app.MoMo.VerifyIPN(body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			if _, err := payments.Complete(ctx.Request.Context(), *result); err != nil {
				respondError(ctx, err)
				return
			}
			// MoMo only needs a 204 to stop retrying
			ctx.Status(http.StatusNoContent)
		}).
		POST("/webhook/stripe", func(ctx *gin.Context) {
			payload, err := io.ReadAll(ctx.Request.Body)
			if err != nil {
				log.Printf("Error reading request body: %s\n", err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			result, err := app.Stripe.ParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
			if err != nil {
				respondError(ctx, err)
				return
			}
			if result == nil {
				ctx.Status(http.StatusOK)
				return
			}
			if _, err := payments.Complete(ctx.Request.Context(), *result); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
