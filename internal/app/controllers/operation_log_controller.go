package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
	"relief-http-service/pkg/logger"
)

// OperationLogController handles audit log queries
type OperationLogController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewOperationLogController creates a new operation log controller
func NewOperationLogController(ctx *gin.Context, container *container.ServiceContainer) *OperationLogController {
	return &OperationLogController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleOperationLogFunc returns a Gin handler for audit log requests
func HandleOperationLogFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewOperationLogController(ctx, container)

		switch method {
		case "list":
			controller.List()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. List returns recent audit entries
// @Summary      Operation log
// @Description  Audit entries newest first, optionally filtered by operation type
// @Tags         Operations
// @Produce      json
// @Param        type   query    string  false  "Operation type, e.g. mission.reroute"
// @Param        limit  query    int     false  "Max entries (default 100)"
// @Success      200  {object}  response.Response{data=[]models.OperationLog}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /operations [get]
// @Security     BearerAuth
func (c *OperationLogController) List() {
	opLog, ok := c.Container.GetService("operation_log").(services.InterfaceOperationLogService)
	if !ok || opLog == nil {
		response.Fail(c.Ctx, code.ErrAuditDisabled, nil)
		return
	}

	limit := 0
	if raw := c.Ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ParamError(c.Ctx, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := opLog.List(c.Ctx.Request.Context(), c.Ctx.Query("type"), limit)
	if err != nil {
		logger.Error("[OperationLog] list failed: %v", err)
		response.Fail(c.Ctx, code.ErrDatabase, nil)
		return
	}
	response.Success(c.Ctx, entries)
}
