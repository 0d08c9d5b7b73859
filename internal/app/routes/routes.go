package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "relief-http-service/docs"
	"relief-http-service/internal/app/controllers"
	"relief-http-service/internal/app/middleware"
	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/infrastructure/config"
)

// SetupRouter builds the engine on top of a wired container
func SetupRouter(container *container.ServiceContainer) *gin.Engine {
	cfg := container.GetService("config").(*config.Config)

	r := gin.Default()
	r.Use(middleware.CORS(cfg.CORSOrigin))

	middleware.InitAuthMiddleware(cfg, container.GetService("jwt").(services.InterfaceJWTService))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(r, container, cfg)
	return r
}

// registerRoutes mounts every API route under /api
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	api := r.Group("/api")
	registerPublicRoutes(api, container, cfg)
	registerOperatorRoutes(api, container, cfg)
	registerManagerRoutes(api, container, cfg)
}

// registerPublicRoutes mounts the webhook and health routes
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "ping"))

	healthGroup := api.Group("/health")
	healthGroup.GET("/status", controllers.HandleHealthFunc(container, "status"))
	healthGroup.GET("/cache-stats", controllers.HandleHealthFunc(container, "cacheStats"))

	api.POST("/sms",
		middleware.ValidateTwilio(cfg.TwilioAuthToken, cfg.TwilioWebhookURL, cfg.TwilioValidate),
		middleware.SenderRateLimiter(cfg.SMSRateLimitRPS, cfg.SMSRateLimitBurst, controllers.HandleSMSFunc(container, "throttled")),
		controllers.HandleSMSFunc(container, "receive"),
	)
}

// registerOperatorRoutes mounts the routes open to every operator role
func registerOperatorRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	auth := api.Group("/")
	auth.Use(middleware.AuthenticateOperator())
	auth.Use(middleware.IPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	taskGroup := auth.Group("/tasks")
	taskGroup.GET("/unverified", controllers.HandleTaskFunc(container, "getUnverified"))
	taskGroup.GET("/verified", controllers.HandleTaskFunc(container, "getVerified"))
	taskGroup.POST("/verify", controllers.HandleTaskFunc(container, "verify"))

	needGroup := auth.Group("/needs")
	needGroup.GET("/map", middleware.Cache(middleware.CacheConfig{Expiration: cfg.ResponseCacheTTL}), controllers.HandleTaskFunc(container, "getMapNeeds"))
	needGroup.POST("/:id/geocode", controllers.HandleTaskFunc(container, "retryGeocode"))

	missionGroup := auth.Group("/missions")
	missionGroup.GET("", middleware.CacheByParams(cfg.ResponseCacheTTL, "status"), controllers.HandleMissionFunc(container, "getMissions"))
	missionGroup.GET("/latest", middleware.Cache(middleware.CacheConfig{Expiration: cfg.ResponseCacheTTL}), controllers.HandleMissionFunc(container, "getLatest"))
	missionGroup.GET("/:id", controllers.HandleMissionFunc(container, "getMission"))

	auth.POST("/optimize-route", controllers.HandleRouteFunc(container, "optimize"))
	auth.GET("/ws/events", controllers.HandleEventFunc(container, "stream"))
}

// registerManagerRoutes mounts mission mutations, alert history and the audit log
func registerManagerRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	manage := api.Group("/")
	manage.Use(middleware.AuthenticateManager())
	manage.Use(middleware.IPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	manage.PATCH("/missions/:id/complete", controllers.HandleMissionFunc(container, "complete"))
	manage.PATCH("/missions/:id/reroute", controllers.HandleMissionFunc(container, "reroute"))

	manage.GET("/alerts", controllers.HandleAlertFunc(container, "getBySource"))
	manage.GET("/operations", controllers.HandleOperationLogFunc(container, "list"))
}
