package container

import (
	"sync"

	"gorm.io/gorm"

	"relief-http-service/internal/domain/repository"
	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/circuit"
	"relief-http-service/pkg/logger"
)

// Dependencies are the external resources the services are built on. Any
// field except Store may be nil; the matching feature then degrades.
type Dependencies struct {
	Store     repository.Store
	DB        *gorm.DB
	Redis     services.InterfaceRedisService
	Triage    services.TriageCapability
	Geocoder  services.Geocoder
	Publisher services.StationPublisher
}

// ServiceContainer manages dependency injection for all services
type ServiceContainer struct {
	config *config.Config
	deps   Dependencies

	breaker *circuit.Breaker

	jwtService          services.InterfaceJWTService
	redisService        services.InterfaceRedisService
	operationLogService services.InterfaceOperationLogService
	eventHub            services.InterfaceEventHub

	triageService   services.InterfaceTriageService
	locationService services.InterfaceLocationService
	intakeService   services.InterfaceIntakeService
	taskService     services.InterfaceTaskService
	alertService    services.InterfaceAlertService
	missionService  services.InterfaceMissionService
	routeService    services.InterfaceRouteService

	closers []func()
	mu      sync.RWMutex
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config, deps Dependencies) *ServiceContainer {
	if cfg == nil {
		panic("config is nil")
	}
	if deps.Store.Needs == nil || deps.Store.Missions == nil {
		panic("store is not configured")
	}

	container := &ServiceContainer{
		config: cfg,
		deps:   deps,
	}
	container.initializeServices()
	return container
}

// initializeServices wires every service
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// base services
	c.jwtService = services.NewJWTService(c.config)
	c.redisService = c.deps.Redis
	c.eventHub = services.NewEventHub(c.config.CORSOrigin)
	if c.deps.DB != nil {
		c.operationLogService = services.NewOperationLogService(c.deps.DB)
	}
	hooks := services.Hooks{Audit: c.operationLogService, Events: c.eventHub}

	// capabilities
	if c.deps.Triage != nil {
		c.breaker = circuit.NewBreaker(circuit.Config{
			Name:        "triage",
			MaxFailures: c.config.TriageBreakerMax,
			Timeout:     c.config.TriageBreakerWindow,
			OnStateChange: func(name string, from, to circuit.State) {
				logger.Warning("[Triage] breaker %s: %s -> %s", name, from, to)
			},
		})
	}
	c.triageService = services.NewTriageService(c.deps.Triage, c.breaker, c.config.GeminiTimeout)

	var cache services.GeocodeCache
	if c.redisService != nil {
		cache = c.redisService
	}
	c.locationService = services.NewLocationService(c.deps.Geocoder, cache)

	// pipeline services
	c.intakeService = services.NewIntakeService(c.deps.Store.Needs, c.triageService, c.locationService, hooks)
	c.taskService = services.NewTaskService(c.deps.Store.Needs, c.locationService, services.TaskLimits{
		Unverified: c.config.MaxUnverified,
		Verified:   c.config.MaxVerified,
		Map:        c.config.MaxMapNeeds,
	}, hooks)
	c.alertService = services.NewAlertService(c.deps.Store, c.deps.Publisher, c.config.MQTTTimeout, hooks)
	c.missionService = services.NewMissionService(c.deps.Store, c.alertService, c.config.MissionListLimit, hooks)
	c.routeService = services.NewRouteService()
}

// OnClose registers a release function run by Close in reverse order
func (c *ServiceContainer) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// Close disconnects event clients and releases the external resources
func (c *ServiceContainer) Close() {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	hub := c.eventHub
	c.mu.Unlock()

	hub.Close()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// GetService returns the named service
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "store":
		return c.deps.Store
	case "publisher":
		return c.deps.Publisher
	case "breaker":
		return c.breaker
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "operation_log":
		return c.operationLogService
	case "events":
		return c.eventHub
	case "triage":
		return c.triageService
	case "location":
		return c.locationService
	case "intake":
		return c.intakeService
	case "task":
		return c.taskService
	case "alert":
		return c.alertService
	case "mission":
		return c.missionService
	case "route":
		return c.routeService
	default:
		return nil
	}
}

// GetDB returns the audit log connection, nil when auditing is off
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deps.DB
}
