package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	config     *Config
	configOnce sync.Once
)

// Store drivers
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Audit log drivers
const (
	OpLogSQLite = "sqlite"
	OpLogMySQL  = "mysql"
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Server
	ServerPort string
	CORSOrigin string

	// Document store
	StoreDriver    string // "mongo"(default) or "memory"
	MongoURI       string
	MongoDatabase  string
	MongoTimeout   time.Duration
	MongoMaxPool   uint64
	MongoQueryWait time.Duration

	// Audit log (gorm)
	OpLogDriver     string // "sqlite"(default) or "mysql"
	OpLogSQLitePath string
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string

	// Redis
	RedisEnabled    bool
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	GeocodeCacheTTL time.Duration

	// Triage capability
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	GeminiTimeout       time.Duration
	TriageBreakerMax    int
	TriageBreakerWindow time.Duration

	// Geocoding capability
	GeocodeBaseURL       string
	GeocodeDefaultRegion string
	GeocodeUserAgent     string
	GeocodeTimeout       time.Duration

	// MQTT station alerts
	MQTTBrokerURL   string // e.g. tcp://broker.example.com:1883, empty disables MQTT
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTQoS         int // 0, 1, 2
	MQTTRetained    bool
	MQTTSSLEnabled  bool
	MQTTCACertPath  string
	MQTTTopicPrefix string
	MQTTTimeout     time.Duration

	// NATS station alert mirror, empty URL disables it
	NATSURL           string
	NATSSubjectPrefix string

	// SMS gateway
	TwilioAuthToken  string
	TwilioValidate   bool
	TwilioWebhookURL string // public URL Twilio signs, empty derives it from the request

	// HTTP middleware
	RateLimitRPS      float64
	RateLimitBurst    int
	SMSRateLimitRPS   float64
	SMSRateLimitBurst int
	ResponseCacheTTL  time.Duration

	// JWT Authentication
	AuthEnabled  bool
	JWTSecretKey string
	JWTIssuer    string

	// Query limits
	MaxUnverified    int
	MaxVerified      int
	MaxMapNeeds      int
	MissionListLimit int
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	envType := strings.ToUpper(getEnv("ENV_TYPE", "LOCAL"))
	prefix := ""

	switch envType {
	case "LOCAL":
		prefix = "LOCAL_"
	case "SERVER":
		prefix = "SERVER_"
	default:
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	fmt.Printf("Loading configuration for environment: %s\n", envType)

	authEnabled := getEnvAsBool("AUTH_ENABLED", false)
	jwtSecret := getEnv("JWT_SECRET_KEY", "relief-secret-key-change-in-production")
	if authEnabled {
		jwtSecret = getEnvRequired("JWT_SECRET_KEY")
	}

	return &Config{
		EnvType: envType,

		ServerPort: getEnv(prefix+"SERVER_PORT", getEnv("PORT", "3000")),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:       getEnv(prefix+"MONGO_URI", getEnv("MONGO_URI", "mongodb://localhost:27017")),
		MongoDatabase:  getEnv("MONGO_DATABASE", "disaster_relief"),
		MongoTimeout:   getEnvAsDuration("MONGO_TIMEOUT", 10*time.Second),
		MongoMaxPool:   uint64(getEnvAsInt("MONGO_MAX_POOL", 100)),
		MongoQueryWait: getEnvAsDuration("MONGO_QUERY_TIMEOUT", 5*time.Second),

		OpLogDriver:     strings.ToLower(getEnv("OPLOG_DRIVER", OpLogSQLite)),
		OpLogSQLitePath: getEnv("OPLOG_SQLITE_PATH", "data/oplog.db"),
		DBHost:          getEnv(prefix+"DB_HOST", "localhost"),
		DBUser:          getEnv(prefix+"DB_USER", "root"),
		DBPassword:      getEnv(prefix+"DB_PASSWORD", ""),
		DBName:          getEnv(prefix+"DB_NAME", "relief_oplog"),
		DBPort:          getEnv(prefix+"DB_PORT", "3306"),

		RedisEnabled:    getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:       getEnv(prefix+"REDIS_HOST", getEnv("REDIS_HOST", "localhost")),
		RedisPort:       getEnv(prefix+"REDIS_PORT", getEnv("REDIS_PORT", "6379")),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		GeocodeCacheTTL: getEnvAsDuration("GEOCODE_CACHE_TTL", 24*time.Hour),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", ""),
		GeminiTimeout:       getEnvAsDuration("GEMINI_TIMEOUT", 8*time.Second),
		TriageBreakerMax:    getEnvAsInt("TRIAGE_BREAKER_MAX_FAILURES", 3),
		TriageBreakerWindow: getEnvAsDuration("TRIAGE_BREAKER_COOLDOWN", time.Minute),

		GeocodeBaseURL:       getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeDefaultRegion: getEnv("GEOCODE_DEFAULT_REGION", "Pune, India"),
		GeocodeUserAgent:     getEnv("GEOCODE_USER_AGENT", "DisasterResponseOptimizer/1.0"),
		GeocodeTimeout:       getEnvAsDuration("GEOCODE_TIMEOUT", 5*time.Second),

		MQTTBrokerURL:   getEnv("MQTT_BROKER_URL", ""),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "relief_dispatch"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:         getEnvAsInt("MQTT_QOS", 1),
		MQTTRetained:    getEnvAsBool("MQTT_RETAINED", false),
		MQTTSSLEnabled:  getEnvAsBool("MQTT_SSL_ENABLED", false),
		MQTTCACertPath:  getEnv("MQTT_CA_CERT_PATH", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "stations"),
		MQTTTimeout:     getEnvAsDuration("MQTT_PUBLISH_TIMEOUT", 3*time.Second),

		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "stations"),

		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioValidate:   getEnvAsBool("TWILIO_VALIDATE", envType == "SERVER"),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),

		RateLimitRPS:      getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 40),
		SMSRateLimitRPS:   getEnvAsFloat("SMS_RATE_LIMIT_RPS", 2),
		SMSRateLimitBurst: getEnvAsInt("SMS_RATE_LIMIT_BURST", 10),
		ResponseCacheTTL:  getEnvAsDuration("RESPONSE_CACHE_TTL", 5*time.Second),

		AuthEnabled:  authEnabled,
		JWTSecretKey: jwtSecret,
		JWTIssuer:    getEnv("JWT_ISSUER", "relief-http-service"),

		MaxUnverified:    getEnvAsInt("MAX_UNVERIFIED_TASKS", 50),
		MaxVerified:      getEnvAsInt("MAX_VERIFIED_TASKS", 100),
		MaxMapNeeds:      getEnvAsInt("MAX_MAP_NEEDS", 200),
		MissionListLimit: getEnvAsInt("MISSION_LIST_LIMIT", 20),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// Validate rejects combinations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory {
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.OpLogDriver != OpLogSQLite && c.OpLogDriver != OpLogMySQL {
		errs = append(errs, fmt.Errorf("unknown OPLOG_DRIVER %q", c.OpLogDriver))
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		errs = append(errs, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTTQoS))
	}
	if c.AuthEnabled && c.JWTSecretKey == "" {
		errs = append(errs, errors.New("AUTH_ENABLED requires JWT_SECRET_KEY"))
	}
	if c.TwilioValidate && c.TwilioAuthToken == "" {
		errs = append(errs, errors.New("TWILIO_VALIDATE requires TWILIO_AUTH_TOKEN"))
	}
	if c.MaxUnverified <= 0 || c.MaxVerified <= 0 || c.MaxMapNeeds <= 0 || c.MissionListLimit <= 0 {
		errs = append(errs, errors.New("list limits must be positive"))
	}
	return errors.Join(errs...)
}

// GetDSN returns the MySQL connection string for the audit log
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// String renders the config with secrets masked
func (c *Config) String() string {
	return fmt.Sprintf("env=%s port=%s store=%s mongo=%s/%s oplog=%s redis=%v mqtt=%q nats=%q gemini_key=%s auth=%v",
		c.EnvType, c.ServerPort, c.StoreDriver, maskURI(c.MongoURI), c.MongoDatabase, c.OpLogDriver,
		c.RedisEnabled, maskURI(c.MQTTBrokerURL), maskURI(c.NATSURL), mask(c.GeminiAPIKey), c.AuthEnabled)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// maskURI hides the userinfo part of a connection string
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return uri
	}
	return uri[:scheme+3] + "****" + uri[at:]
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as float with default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as duration ("5s", "1m") with default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvRequired panics when a mandatory variable is missing
func getEnvRequired(key string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	panic(fmt.Sprintf("Required environment variable %s is not set", key))
}
