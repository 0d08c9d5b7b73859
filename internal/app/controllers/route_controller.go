package controllers

import (
	"github.com/gin-gonic/gin"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
)

// RouteController handles route optimization
type RouteController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewRouteController creates a new route controller
func NewRouteController(ctx *gin.Context, container *container.ServiceContainer) *RouteController {
	return &RouteController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleRouteFunc returns a Gin handler for route requests
func HandleRouteFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRouteController(ctx, container)

		switch method {
		case "optimize":
			controller.Optimize()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. Optimize orders stops by nearest neighbour from the depot
// @Summary      Optimize route
// @Description  Visit order over haversine distance. Stops without coordinates are skipped
// @Tags         Routing
// @Accept       json
// @Produce      json
// @Param        request body services.RouteRequest true "Depot and stops"
// @Success      200  {object}  services.RouteResult
// @Failure      400  {object}  ErrorResponse
// @Router       /optimize-route [post]
// @Security     BearerAuth
func (c *RouteController) Optimize() {
	var req services.RouteRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "invalid request body: "+err.Error(), nil)
		return
	}

	routeService := c.Container.GetService("route").(services.InterfaceRouteService)
	result, err := routeService.Optimize(req)
	if err != nil {
		failWithError(c.Ctx, "Route", err)
		return
	}
	response.JSON(c.Ctx, result)
}
