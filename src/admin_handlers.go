package main

import (
	"fms/src/apperror"
	"fms/src/boot"
	"fms/src/middlewares"
	"fms/src/types"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func createdID(ctx *gin.Context, id string, err error) {
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"id": id})
}

func adminHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	catalog := app.Services.Catalog
	g.
		POST("/restaurants", func(ctx *gin.Context) {
			var body types.CreateRestaurantRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateRestaurant(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		POST("/menu-items", func(ctx *gin.Context) {
			var body types.CreateMenuItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateMenuItem(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		PUT("/menu-items/:id/restock", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			var body types.RestockMenuItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			item, err := catalog.RestockMenuItem(ctx.Request.Context(), middlewares.GetAuth(ctx), params.ID, body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": item})
		}).
		POST("/facilities", func(ctx *gin.Context) {
			var body types.CreateFacilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateFacility(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		POST("/parking-spaces", func(ctx *gin.Context) {
			var body types.CreateParkingSpaceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateParkingSpace(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		POST("/bus-routes", func(ctx *gin.Context) {
			var body types.CreateBusRouteRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateRoute(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		POST("/buses", func(ctx *gin.Context) {
			var body types.CreateBusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			id, err := catalog.CreateBus(ctx.Request.Context(), middlewares.GetAuth(ctx), body)
			createdID(ctx, id, err)
		}).
		GET("/reports/daily", func(ctx *gin.Context) {
			if !middlewares.GetAuth(ctx).IsAdmin() {
				respondError(ctx, apperror.ErrAdminRequired)
				return
			}
			loc := app.Config.Pricing.Location
			day := time.Now().In(loc)
			if raw := ctx.Query("day"); raw != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, raw, loc)
				if err != nil {
					respondBindError(ctx, err)
					return
				}
				day = parsed
			}
			report, err := app.Services.Jobs.DailyReport(ctx.Request.Context(), day)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": report})
		})
	return g
}
