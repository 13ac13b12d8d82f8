package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hospiq/patient-queue/internal/models"
)

type Config struct {
	Env    string
	Server ServerConfig
	Store  StoreConfig
	Redis  RedisConfig
	Queue  QueueConfig
	JWT    JWTConfig
	Log    LogConfig
	Kafka  KafkaConfig
}

type ServerConfig struct {
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	// Backend selects the queue store implementation: "redis" or "memory".
	Backend string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type QueueConfig struct {
	// ServingSlots caps concurrent serving entries per department. Departments
	// not listed use DefaultServingSlots.
	DefaultServingSlots int
	ServingSlots        map[models.Department]int

	// Congestion thresholds on the waiting count: LOW up to CongestionLowMax,
	// MODERATE up to CongestionModerateMax, HIGH above.
	CongestionLowMax      int
	CongestionModerateMax int

	// DayLocation anchors the department-day boundary for queue numbers and
	// today-scoped analytics.
	DayLocation *time.Location

	// EntryTTL bounds how long terminal entries stay readable in the store.
	EntryTTL time.Duration
}

type KafkaConfig struct {
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	Enabled              bool
	ConsumerGroupID      string
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("QUEUE_DAY_LOCATION", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_DAY_LOCATION: %w", err)
	}

	slots, err := parseServingSlots(getEnv("QUEUE_SERVING_SLOTS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_SERVING_SLOTS: %w", err)
	}

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			HTTPPort:     getEnvAsInt("SERVER_HTTP_PORT", 8085),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "redis"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Queue: QueueConfig{
			DefaultServingSlots:   getEnvAsInt("QUEUE_DEFAULT_SERVING_SLOTS", 1),
			ServingSlots:          slots,
			CongestionLowMax:      getEnvAsInt("QUEUE_CONGESTION_LOW_MAX", 3),
			CongestionModerateMax: getEnvAsInt("QUEUE_CONGESTION_MODERATE_MAX", 8),
			DayLocation:           loc,
			EntryTTL:              getEnvAsDuration("QUEUE_ENTRY_TTL", 48*time.Hour),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Kafka: KafkaConfig{
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			Enabled:              getEnvAsBool("KAFKA_ENABLED", false),
			ConsumerGroupID:      getEnv("KAFKA_CONSUMER_GROUP_ID", "patient-queue-service"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.HTTPPort)
	}

	switch c.Store.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Store.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Queue.DefaultServingSlots < 1 {
		return fmt.Errorf("default serving slots must be at least 1")
	}

	if c.Queue.EntryTTL <= 0 {
		return fmt.Errorf("entry TTL must be positive")
	}

	if c.Queue.CongestionLowMax < 0 || c.Queue.CongestionModerateMax <= c.Queue.CongestionLowMax {
		return fmt.Errorf("congestion thresholds must satisfy 0 <= low < moderate")
	}

	if c.JWT.Secret == "" && c.Env == "production" {
		return fmt.Errorf("JWT secret must be set in production")
	}

	return nil
}

// ServingSlotsFor resolves the serving cap for a department.
func (c *QueueConfig) ServingSlotsFor(d models.Department) int {
	if n, ok := c.ServingSlots[d]; ok {
		return n
	}
	return c.DefaultServingSlots
}

// parseServingSlots parses "Emergency=3,OPD=2" style overrides.
func parseServingSlots(s string) (map[models.Department]int, error) {
	slots := make(map[models.Department]int)
	if s == "" {
		return slots, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair: %q", pair)
		}

		dept := models.Department(strings.TrimSpace(k))
		if !dept.Valid() {
			return nil, fmt.Errorf("unknown department: %q", k)
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid slot count for %s: %q", dept, v)
		}

		slots[dept] = n
	}

	return slots, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Split by comma
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
