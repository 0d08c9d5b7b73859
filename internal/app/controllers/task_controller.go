package controllers

import (
	"github.com/gin-gonic/gin"

	"relief-http-service/internal/app/middleware"
	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
)

// InterfaceTaskController defines the volunteer task controller interface
type InterfaceTaskController interface {
	GetUnverified()
	GetVerified()
	Verify()
	GetMapNeeds()
	RetryGeocode()
}

// TaskController handles volunteer task lists, verification and the need map
type TaskController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewTaskController creates a new task controller
func NewTaskController(ctx *gin.Context, container *container.ServiceContainer) *TaskController {
	return &TaskController{
		Ctx:       ctx,
		Container: container,
	}
}

// VerifyTaskRequest is the verification body
type VerifyTaskRequest struct {
	TaskID         string `json:"taskId" example:"665f1c2e9b1d4a0012ab34cd"`
	VolunteerNotes string `json:"volunteerNotes" example:"confirmed on site"`
}

// VerifyTaskResponse is the verification reply
type VerifyTaskResponse struct {
	Success bool                `json:"success" example:"true"`
	Message string              `json:"message" example:"Task verified successfully"`
	Task    models.VerifiedTask `json:"task"`
}

// HandleTaskFunc returns a Gin handler for task requests
func HandleTaskFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewTaskController(ctx, container)

		switch method {
		case "getUnverified":
			controller.GetUnverified()
		case "getVerified":
			controller.GetVerified()
		case "verify":
			controller.Verify()
		case "getMapNeeds":
			controller.GetMapNeeds()
		case "retryGeocode":
			controller.RetryGeocode()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

func (c *TaskController) service() services.InterfaceTaskService {
	return c.Container.GetService("task").(services.InterfaceTaskService)
}

// 1. GetUnverified lists needs waiting for a volunteer
// @Summary      List unverified tasks
// @Description  Unverified needs, newest first
// @Tags         Tasks
// @Produce      json
// @Success      200  {array}   models.TaskDTO
// @Failure      500  {object}  ErrorResponse
// @Router       /tasks/unverified [get]
// @Security     BearerAuth
func (c *TaskController) GetUnverified() {
	tasks, err := c.service().ListUnverified(c.Ctx.Request.Context())
	if err != nil {
		failWithError(c.Ctx, "Task", err)
		return
	}
	response.JSON(c.Ctx, tasks)
}

// 2. GetVerified lists verified needs
// @Summary      List verified tasks
// @Description  Verified needs, most recently verified first
// @Tags         Tasks
// @Produce      json
// @Success      200  {array}   models.TaskDTO
// @Failure      500  {object}  ErrorResponse
// @Router       /tasks/verified [get]
// @Security     BearerAuth
func (c *TaskController) GetVerified() {
	tasks, err := c.service().ListVerified(c.Ctx.Request.Context())
	if err != nil {
		failWithError(c.Ctx, "Task", err)
		return
	}
	response.JSON(c.Ctx, tasks)
}

// 3. Verify marks a need as verified
// @Summary      Verify task
// @Description  Move an Unverified need to Verified. Verifying twice returns the first verification
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        request body VerifyTaskRequest true "Task id and notes"
// @Success      200  {object}  VerifyTaskResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /tasks/verify [post]
// @Security     BearerAuth
func (c *TaskController) Verify() {
	var req VerifyTaskRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(c.Ctx, code.ErrTaskIDRequired, nil)
		return
	}

	result, err := c.service().Verify(c.Ctx.Request.Context(), req.TaskID, req.VolunteerNotes)
	if err != nil {
		failWithError(c.Ctx, "Task", err)
		return
	}

	middleware.PurgeCache()
	response.JSON(c.Ctx, VerifyTaskResponse{
		Success: true,
		Message: "Task verified successfully",
		Task:    result.Task,
	})
}

// 4. GetMapNeeds lists located needs for the map
// @Summary      Need map
// @Description  Needs with coordinates, any status
// @Tags         Needs
// @Produce      json
// @Success      200  {array}   models.MapNeedDTO
// @Failure      500  {object}  ErrorResponse
// @Router       /needs/map [get]
// @Security     BearerAuth
func (c *TaskController) GetMapNeeds() {
	pins, err := c.service().MapNeeds(c.Ctx.Request.Context())
	if err != nil {
		failWithError(c.Ctx, "Task", err)
		return
	}
	response.JSON(c.Ctx, pins)
}

// 5. RetryGeocode resolves coordinates for a need stored without them
// @Summary      Retry geocoding
// @Description  Re-run location resolution for a need. Existing coordinates are never replaced
// @Tags         Needs
// @Produce      json
// @Param        id   path      string  true  "Need ID"
// @Success      200  {object}  services.GeocodeRetryResult
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /needs/{id}/geocode [post]
// @Security     BearerAuth
func (c *TaskController) RetryGeocode() {
	result, err := c.service().RetryGeocode(c.Ctx.Request.Context(), c.Ctx.Param("id"))
	if err != nil {
		failWithError(c.Ctx, "Task", err)
		return
	}
	if result.Updated {
		middleware.PurgeCache()
	}
	response.JSON(c.Ctx, result)
}
