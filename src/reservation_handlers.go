package main

import (
	"context"
	"fms/src/boot"
	"fms/src/middlewares"
	"fms/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

type cancelFunc func(ctx context.Context, auth types.AuthContext, id string) error

func cancelHandler(cancel cancelFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var params types.SimpleRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			respondBindError(ctx, err)
			return
		}
		if err := cancel(ctx.Request.Context(), middlewares.GetAuth(ctx), params.ID); err != nil {
			respondError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

func busHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	buses := app.Services.Buses
	g.
		POST("/buses/subscriptions", func(ctx *gin.Context) {
			var body types.CreateBusSubscriptionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := buses.Subscribe(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		PUT("/buses/subscriptions/:id/cancel", cancelHandler(buses.Cancel))
	return g
}

func parkingHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	parking := app.Services.Parking
	g.
		POST("/parking/subscriptions", func(ctx *gin.Context) {
			var body types.CreateParkingSubscriptionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := parking.Subscribe(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		PUT("/parking/subscriptions/:id/cancel", cancelHandler(parking.Cancel))
	return g
}

func facilityHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	facilities := app.Services.Facilities
	g.
		POST("/facilities/reservations", func(ctx *gin.Context) {
			var body types.CreateFacilityReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := facilities.Reserve(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		PUT("/facilities/reservations/:id/cancel", cancelHandler(facilities.Cancel))
	return g
}
