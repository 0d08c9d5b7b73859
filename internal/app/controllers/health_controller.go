package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relief-http-service/internal/app/middleware"
	"relief-http-service/internal/domain/repository"
	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
)

var startedAt = time.Now()

// statusReporter is implemented by publishers that can report transport state
type statusReporter interface {
	Status() map[string]string
}

// HealthCheckController handles liveness and dependency checks
type HealthCheckController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthCheckController creates a new health check controller
func NewHealthCheckController(ctx *gin.Context, container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{
		Ctx:       ctx,
		Container: container,
	}
}

// HealthStatus is the dependency report
type HealthStatus struct {
	Status     string            `json:"status" example:"healthy"`
	Store      string            `json:"store" example:"up"`
	Redis      string            `json:"redis" example:"disabled"`
	Transports map[string]string `json:"transports"`
	Triage     string            `json:"triage" example:"closed"`
	AuditLog   string            `json:"auditLog" example:"up"`
	WSClients  int               `json:"wsClients"`
	Uptime     string            `json:"uptime" example:"1h2m3s"`
}

// HandleHealthFunc returns a Gin handler for health requests
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthCheckController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		case "cacheStats":
			controller.CacheStats()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. Ping is the liveness probe
// @Summary      Ping
// @Tags         Health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /ping [get]
func (h *HealthCheckController) Ping() {
	response.Success(h.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// 2. Status reports the state of every backend
// @Summary      Dependency status
// @Description  Store and redis ping, station transports, triage breaker state. 503 when the store is down
// @Tags         Health
// @Produce      json
// @Success      200  {object}  response.Response{data=HealthStatus}
// @Failure      503  {object}  response.Response{data=HealthStatus}
// @Router       /health/status [get]
func (h *HealthCheckController) Status() {
	ctx, cancel := context.WithTimeout(h.Ctx.Request.Context(), 3*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:     "healthy",
		Store:      "up",
		Redis:      "disabled",
		Transports: map[string]string{},
		Triage:     "disabled",
		AuditLog:   "disabled",
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
	}

	store := h.Container.GetService("store").(repository.Store)
	if store.Ping != nil {
		if err := store.Ping(ctx); err != nil {
			status.Store = "down: " + err.Error()
			status.Status = "unhealthy"
		}
	}

	if redisService, ok := h.Container.GetService("redis").(services.InterfaceRedisService); ok && redisService != nil {
		status.Redis = "up"
		if err := redisService.Ping(ctx); err != nil {
			status.Redis = "down: " + err.Error()
			status.Status = degrade(status.Status)
		}
	}

	if reporter, ok := h.Container.GetService("publisher").(statusReporter); ok {
		status.Transports = reporter.Status()
		for _, state := range status.Transports {
			if state == "disconnected" {
				status.Status = degrade(status.Status)
			}
		}
	}

	if triage, ok := h.Container.GetService("triage").(services.InterfaceTriageService); ok {
		status.Triage = triage.BreakerState()
		if status.Triage == "open" {
			status.Status = degrade(status.Status)
		}
	}

	if db := h.Container.GetDB(); db != nil {
		status.AuditLog = "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status.AuditLog = "down"
			status.Status = degrade(status.Status)
		}
	}

	if hub, ok := h.Container.GetService("events").(services.InterfaceEventHub); ok {
		status.WSClients = hub.ClientCount()
	}

	if status.Status == "unhealthy" {
		h.Ctx.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    code.ErrUnknown,
			Message: "store unavailable",
			Data:    status,
		})
		return
	}
	response.Success(h.Ctx, status)
}

// degrade lowers healthy to degraded and leaves worse states alone
func degrade(current string) string {
	if current == "healthy" {
		return "degraded"
	}
	return current
}

// 3. CacheStats reports the response cache
// @Summary      Response cache statistics
// @Tags         Health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /health/cache-stats [get]
func (h *HealthCheckController) CacheStats() {
	response.Success(h.Ctx, middleware.CacheStats())
}
