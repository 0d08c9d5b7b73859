package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
)

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	GeocodeCache
}

// GeocodeCache stores resolved coordinates by normalized query
type GeocodeCache interface {
	GetCoordinates(ctx context.Context, query string) (*models.Coordinates, bool, error)
	CacheCoordinates(ctx context.Context, query string, coords *models.Coordinates) error
}

// RedisService handles Redis operations
type RedisService struct {
	Client     *redis.Client
	GeocodeTTL time.Duration
	KeyPrefix  string
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisService{
		Client:     client,
		GeocodeTTL: cfg.GeocodeCacheTTL,
		KeyPrefix:  "geocode:",
	}
}

// 1 Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(ctx, key, jsonValue, expiration).Err()
}

// 2 Get gets a value from Redis by key
func (s *RedisService) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.Client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// 3 Delete deletes a key from Redis
func (s *RedisService) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// 4 Ping checks the connection
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// 5 GetCoordinates looks up a cached geocode result
func (s *RedisService) GetCoordinates(ctx context.Context, query string) (*models.Coordinates, bool, error) {
	var coords models.Coordinates
	err := s.Get(ctx, s.geocodeKey(query), &coords)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &coords, true, nil
}

// 6 CacheCoordinates stores a geocode result
func (s *RedisService) CacheCoordinates(ctx context.Context, query string, coords *models.Coordinates) error {
	if coords == nil {
		return nil
	}
	return s.Set(ctx, s.geocodeKey(query), coords, s.GeocodeTTL)
}

func (s *RedisService) geocodeKey(query string) string {
	return s.KeyPrefix + GeocodeCacheKey(query)
}

// GeocodeCacheKey hashes a lower-cased, whitespace-collapsed query
func GeocodeCacheKey(query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])
}
