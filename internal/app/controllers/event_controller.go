package controllers

import (
	"github.com/gin-gonic/gin"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
	"relief-http-service/pkg/logger"
)

// EventController upgrades dashboard clients to the live event stream
type EventController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewEventController creates a new event controller
func NewEventController(ctx *gin.Context, container *container.ServiceContainer) *EventController {
	return &EventController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleEventFunc returns a Gin handler for event stream requests
func HandleEventFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewEventController(ctx, container)

		switch method {
		case "stream":
			controller.Stream()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. Stream serves the websocket event feed
// @Summary      Live events
// @Description  Websocket stream of need, mission and alert events
// @Tags         Events
// @Success      101  {string}  string  "Switching Protocols"
// @Router       /ws/events [get]
// @Security     BearerAuth
func (c *EventController) Stream() {
	hub := c.Container.GetService("events").(services.InterfaceEventHub)
	if err := hub.Serve(c.Ctx.Writer, c.Ctx.Request); err != nil {
		// the upgrader has already written the failure response
		logger.Warning("[Events] websocket upgrade from %s failed: %v", c.Ctx.ClientIP(), err)
	}
}
