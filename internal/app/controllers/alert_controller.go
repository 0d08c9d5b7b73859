package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
)

const defaultAlertHistoryLimit = 50

// AlertController handles station alert history
type AlertController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAlertController creates a new alert controller
func NewAlertController(ctx *gin.Context, container *container.ServiceContainer) *AlertController {
	return &AlertController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleAlertFunc returns a Gin handler for alert requests
func HandleAlertFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAlertController(ctx, container)

		switch method {
		case "getBySource":
			controller.GetBySource()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. GetBySource lists the alerts raised for one report or need
// @Summary      Alert history
// @Description  Alerts for a source record, newest first, cancelled ones included
// @Tags         Alerts
// @Produce      json
// @Param        sourceId query    string  true   "Report or need ID"
// @Param        limit    query    int     false  "Max entries (default 50)"
// @Success      200  {array}   models.EmergencyAlert
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /alerts [get]
// @Security     BearerAuth
func (c *AlertController) GetBySource() {
	limit := defaultAlertHistoryLimit
	if raw := c.Ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ParamError(c.Ctx, "limit must be a positive integer")
			return
		}
		limit = n
	}

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	alerts, err := alertService.ListBySource(c.Ctx.Request.Context(), c.Ctx.Query("sourceId"), limit)
	if err != nil {
		failWithError(c.Ctx, "Alert", err)
		return
	}
	response.JSON(c.Ctx, alerts)
}
