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

// InterfaceMissionController defines the mission controller interface
type InterfaceMissionController interface {
	GetMissions()
	GetLatest()
	GetMission()
	Complete()
	Reroute()
}

// MissionController handles mission listing and lifecycle transitions
type MissionController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewMissionController creates a new mission controller
func NewMissionController(ctx *gin.Context, container *container.ServiceContainer) *MissionController {
	return &MissionController{
		Ctx:       ctx,
		Container: container,
	}
}

// RerouteRequest is the reroute body
type RerouteRequest struct {
	Station *models.Station `json:"station"`
}

// CompleteResponse is the completion reply
type CompleteResponse struct {
	ID     string `json:"id" example:"665f1c2e9b1d4a0012ab34cd"`
	Status string `json:"status" example:"Completed"`
}

// RerouteResponse is the reroute reply
type RerouteResponse struct {
	ID               string         `json:"id" example:"665f1c2e9b1d4a0012ab34cd"`
	Status           string         `json:"status" example:"Rerouted"`
	NewStation       models.Station `json:"newStation"`
	AlertsDispatched bool           `json:"alertsDispatched" example:"true"`
}

// HandleMissionFunc returns a Gin handler for mission requests
func HandleMissionFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewMissionController(ctx, container)

		switch method {
		case "getMissions":
			controller.GetMissions()
		case "getLatest":
			controller.GetLatest()
		case "getMission":
			controller.GetMission()
		case "complete":
			controller.Complete()
		case "reroute":
			controller.Reroute()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

func (c *MissionController) service() services.InterfaceMissionService {
	return c.Container.GetService("mission").(services.InterfaceMissionService)
}

// 1. GetMissions lists missions, optionally by status
// @Summary      List missions
// @Description  Missions newest first, each with hasDispatched
// @Tags         Missions
// @Produce      json
// @Param        status query     string  false  "Active, Completed or Rerouted"
// @Success      200  {array}   models.MissionDTO
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /missions [get]
// @Security     BearerAuth
func (c *MissionController) GetMissions() {
	missions, err := c.service().List(c.Ctx.Request.Context(), c.Ctx.Query("status"))
	if err != nil {
		failWithError(c.Ctx, "Mission", err)
		return
	}
	response.JSON(c.Ctx, missions)
}

// 2. GetLatest returns the most recent mission
// @Summary      Latest mission
// @Description  Most recently created mission, null when there is none
// @Tags         Missions
// @Produce      json
// @Success      200  {object}  models.MissionDTO
// @Failure      500  {object}  ErrorResponse
// @Router       /missions/latest [get]
// @Security     BearerAuth
func (c *MissionController) GetLatest() {
	mission, err := c.service().Latest(c.Ctx.Request.Context())
	if err != nil {
		failWithError(c.Ctx, "Mission", err)
		return
	}
	if mission == nil {
		response.JSON(c.Ctx, nil)
		return
	}
	response.JSON(c.Ctx, mission)
}

// 3. GetMission returns one mission
// @Summary      Get mission
// @Tags         Missions
// @Produce      json
// @Param        id   path      string  true  "Mission ID"
// @Success      200  {object}  models.MissionDTO
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /missions/{id} [get]
// @Security     BearerAuth
func (c *MissionController) GetMission() {
	mission, err := c.service().Get(c.Ctx.Request.Context(), c.Ctx.Param("id"))
	if err != nil {
		failWithError(c.Ctx, "Mission", err)
		return
	}
	response.JSON(c.Ctx, mission)
}

// 4. Complete closes an active mission and its member records
// @Summary      Complete mission
// @Description  Mark an Active mission and every report and need it references as Completed
// @Tags         Missions
// @Produce      json
// @Param        id   path      string  true  "Mission ID"
// @Success      200  {object}  CompleteResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /missions/{id}/complete [patch]
// @Security     BearerAuth
func (c *MissionController) Complete() {
	result, err := c.service().Complete(c.Ctx.Request.Context(), c.Ctx.Param("id"))
	if err != nil {
		failWithError(c.Ctx, "Mission", err)
		return
	}

	middleware.PurgeCache()
	response.JSON(c.Ctx, CompleteResponse{ID: result.ID, Status: result.Status})
}

// 5. Reroute sends an active mission to another station
// @Summary      Reroute mission
// @Description  Cancel open alerts for the mission records and dispatch new ones to the given station
// @Tags         Missions
// @Accept       json
// @Produce      json
// @Param        id      path  string          true  "Mission ID"
// @Param        request body  RerouteRequest  true  "New station"
// @Success      200  {object}  RerouteResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /missions/{id}/reroute [patch]
// @Security     BearerAuth
func (c *MissionController) Reroute() {
	var req RerouteRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(c.Ctx, code.ErrStationInvalid, nil)
		return
	}

	result, err := c.service().Reroute(c.Ctx.Request.Context(), c.Ctx.Param("id"), req.Station)
	if err != nil {
		failWithError(c.Ctx, "Mission", err)
		return
	}

	middleware.PurgeCache()
	response.JSON(c.Ctx, RerouteResponse{
		ID:               result.ID,
		Status:           result.Status,
		NewStation:       result.Station,
		AlertsDispatched: result.AlertsDispatched,
	})
}
