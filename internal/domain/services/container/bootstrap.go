package container

import (
	"context"
	"fmt"
	"time"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/internal/infrastructure/database"
	"relief-http-service/internal/infrastructure/gemini"
	"relief-http-service/internal/infrastructure/geocoder"
	"relief-http-service/internal/infrastructure/messaging"
	"relief-http-service/internal/infrastructure/store"
	"relief-http-service/pkg/logger"
)

// Build connects the configured backends and wires the container. Only the
// document store is mandatory; every other backend failing to connect is
// logged and its feature degrades.
func Build(ctx context.Context, cfg *config.Config) (*ServiceContainer, error) {
	var (
		deps    Dependencies
		closers []func()
	)

	// document store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warning("STORE_DRIVER=memory: needs and missions are not persisted")
		deps.Store = store.NewMemoryStore().Store()
	default:
		mc, err := database.NewMongoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Store = store.NewMongoStore(mc.Database, mc.Ping)
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mc.Close(closeCtx); err != nil {
				logger.Warning("failed to disconnect mongo: %v", err)
			}
		})
	}

	// audit log
	if pool, err := database.NewConnectionPool(cfg); err != nil {
		logger.Error("operation log unavailable, auditing disabled: %v", err)
	} else {
		deps.DB = pool.GetDB()
		closers = append(closers, func() { _ = pool.Close() })
		if stats, err := pool.Stats(); err == nil {
			logger.Info("operation log pool: %+v", stats)
		}
	}

	// geocode cache
	if cfg.RedisEnabled {
		redisService := services.NewRedisService(cfg)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisService.Ping(pingCtx); err != nil {
			logger.Warning("Redis ping failed: %v, geocode results will not be cached", err)
		} else {
			deps.Redis = redisService
		}
		cancel()
	}

	// capabilities
	if cfg.GeminiAPIKey != "" {
		if triageClient, err := gemini.NewClient(ctx, cfg); err != nil {
			logger.Error("[Triage] %v, every message goes through the fallback parser", err)
		} else {
			deps.Triage = triageClient
		}
	} else {
		logger.Warning("GEMINI_API_KEY not set, every message goes through the fallback parser")
	}
	deps.Geocoder = geocoder.NewClient(cfg)

	// station transports
	publisher, err := buildPublisher(cfg)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}
	deps.Publisher = publisher
	closers = append(closers, publisher.Close)

	c := NewServiceContainer(cfg, deps)
	for _, fn := range closers {
		c.OnClose(fn)
	}
	return c, nil
}

func buildPublisher(cfg *config.Config) (*messaging.MultiPublisher, error) {
	var transports []messaging.Publisher

	if cfg.MQTTBrokerURL != "" {
		mqttPublisher := messaging.NewMQTTPublisher(cfg)
		if err := mqttPublisher.Connect(3); err != nil {
			// publish retries the connection lazily
			logger.Error("[MQTT] %v", err)
		}
		transports = append(transports, mqttPublisher)
	}

	if cfg.NATSURL != "" {
		natsPublisher, err := messaging.NewNATSPublisher(cfg)
		if err != nil {
			logger.Error("[NATS] %v", err)
		} else {
			transports = append(transports, natsPublisher)
		}
	}

	if len(transports) == 0 {
		logger.Warning("no MQTT or NATS broker configured, station alerts are written to the log only")
		transports = append(transports, messaging.LogPublisher{})
	}

	publisher := messaging.NewMultiPublisher(transports...)
	if publisher.Len() == 0 {
		return nil, fmt.Errorf("no station transport available")
	}
	logger.Info("station alerts via %s", publisher.Name())
	return publisher, nil
}
