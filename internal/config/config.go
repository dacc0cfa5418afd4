package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the swap execution engine.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Queue         QueueConfig
	Wallet        WalletConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Security      SecurityConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host                string
	Port                int
	User                string
	Password            string
	Name                string
	SSLMode             string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	QueryTimeout        time.Duration
	HealthCheckInterval time.Duration
}

func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// QueueConfig governs the durable job queue and worker pool.
type QueueConfig struct {
	StreamName        string
	ConsumerGroup      string
	Concurrency        int           // 1..50, default 10
	MaxAttempts        int           // 1..10, default 3
	StartsPerSecond    int           // worker pool rate limit, default 100
	BaseBackoff        time.Duration // default 5s
	BackoffMultiplier  float64       // default 2
	StallTimeout       time.Duration
	ShutdownDeadline   time.Duration
	RemoveOnCompleteN  int
	RemoveOnCompleteAge time.Duration
	RemoveOnFailN      int
	RemoveOnFailAge    time.Duration
}

type WalletConfig struct {
	Address string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	ServiceName    string
	LogLevel       string
	LogFormat      string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type SecurityConfig struct {
	CORSAllowedOrigins []string
}

// Load loads configuration from environment variables, failing fast on
// anything that would leave the engine in an inconsistent state.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			Host:         getEnv("HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:                getEnv("DB_HOST", "localhost"),
			Port:                getIntEnv("DB_PORT", 5432),
			User:                getEnv("DB_USER", "postgres"),
			Password:            getEnv("DB_PASSWORD", ""),
			Name:                getEnv("DB_NAME", "swapengine"),
			SSLMode:             getEnv("DB_SSL", "disable"),
			MaxOpenConns:        getIntEnv("DB_POOL_MAX", 10),
			MaxIdleConns:        getIntEnv("DB_POOL_MIN", 2),
			ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			QueryTimeout:        getDurationEnv("DB_QUERY_TIMEOUT", 10*time.Second),
			HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getIntEnv("REDIS_PORT", 6379),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getIntEnv("REDIS_DB", 0),
			PoolSize:        getIntEnv("REDIS_POOL_SIZE", 20),
			MinIdleConns:    getIntEnv("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:     getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			MaxRetries:      getIntEnv("REDIS_MAX_RETRIES", 3),
			MinRetryBackoff: getDurationEnv("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: getDurationEnv("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond),
		},
		Queue: QueueConfig{
			StreamName:          getEnv("QUEUE_STREAM_NAME", "swapengine:jobs"),
			ConsumerGroup:       getEnv("QUEUE_CONSUMER_GROUP", "swapengine-workers"),
			Concurrency:         getIntEnv("QUEUE_CONCURRENCY", 10),
			MaxAttempts:         getIntEnv("QUEUE_MAX_ATTEMPTS", 3),
			StartsPerSecond:     getIntEnv("QUEUE_STARTS_PER_SECOND", 100),
			BaseBackoff:         getDurationEnv("QUEUE_BASE_BACKOFF", 5*time.Second),
			BackoffMultiplier:   getFloatEnv("QUEUE_BACKOFF_MULTIPLIER", 2.0),
			StallTimeout:        getDurationEnv("QUEUE_STALL_TIMEOUT", 30*time.Second),
			ShutdownDeadline:    getDurationEnv("QUEUE_SHUTDOWN_DEADLINE", 20*time.Second),
			RemoveOnCompleteN:   getIntEnv("QUEUE_REMOVE_ON_COMPLETE_N", 1000),
			RemoveOnCompleteAge: getDurationEnv("QUEUE_REMOVE_ON_COMPLETE_AGE", 24*time.Hour),
			RemoveOnFailN:       getIntEnv("QUEUE_REMOVE_ON_FAIL_N", 5000),
			RemoveOnFailAge:     getDurationEnv("QUEUE_REMOVE_ON_FAIL_AGE", 7*24*time.Hour),
		},
		Wallet: WalletConfig{
			Address: getEnv("WALLET_ADDRESS", ""),
		},
		Observability: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "swapengine"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 600),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 50),
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Queue.Concurrency < 1 || c.Queue.Concurrency > 50 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be between 1 and 50, got %d", c.Queue.Concurrency)
	}
	if c.Queue.MaxAttempts < 1 || c.Queue.MaxAttempts > 10 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be between 1 and 10, got %d", c.Queue.MaxAttempts)
	}
	switch c.Observability.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of error,warn,info,debug, got %q", c.Observability.LogLevel)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Wallet.Address == "" {
		return fmt.Errorf("WALLET_ADDRESS is required")
	}
	return nil
}

// Helper functions for environment variable parsing, matching the style used
// throughout the wider codebase.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
