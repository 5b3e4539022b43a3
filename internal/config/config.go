package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Gateways  GatewaysConfig
	Jobs      JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	URL string // postgres connection string (DATABASE_URL)

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	ConnectTimeout    time.Duration
}

type RedisConfig struct {
	URL      string // host:port (REDIS_URL)
	Password string
	DB       int
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type WebhookConfig struct {
	Timeout       time.Duration // per-POST timeout
	MaxRetries    int           // MAX_ATTEMPTS for a delivery
	InitialDelay  time.Duration // first retry delay
	MaxRetryDelay time.Duration // backoff ceiling
	Jitter        float64       // fraction of delay added as random jitter
}

type GatewaysConfig struct {
	EnableStripe   bool
	EnableRazorpay bool
	EnableMock     bool

	Stripe   StripeConfig
	Razorpay RazorpayConfig
	Mock     MockConfig
}

type StripeConfig struct {
	SecretKey string
	APIURL    string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	APIURL    string
}

type MockConfig struct {
	SuccessRate      float64
	AverageLatencyMs int
	EnableChaos      bool
	ChaosRate        float64
}

type JobConfig struct {
	DrainBatchSize         int
	RetrySweepLimit        int
	PurgeBatchSize         int
	OutboxRetentionDays    int
	DeliveryRetentionDays  int
	EventRetentionDays     int
}

// Load reads config from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "OpenPayFlow"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			URL:               os.Getenv("DATABASE_URL"),
			MaxConns:          int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", time.Minute),
			HealthCheckPeriod: getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			MaxRetries:        getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:        getEnvDuration("DB_RETRY_DELAY", time.Second),
			ConnectTimeout:    getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Max:    getEnvInt("RATE_LIMIT_MAX", 100),
			Window: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		},
		Webhook: WebhookConfig{
			Timeout:       time.Duration(getEnvInt("WEBHOOK_TIMEOUT_MS", 30000)) * time.Millisecond,
			MaxRetries:    getEnvInt("WEBHOOK_MAX_RETRIES", 10),
			InitialDelay:  getEnvDuration("WEBHOOK_INITIAL_RETRY_DELAY", time.Second),
			MaxRetryDelay: getEnvDuration("WEBHOOK_MAX_RETRY_DELAY", 24*time.Hour),
			Jitter:        getEnvFloat("WEBHOOK_RETRY_JITTER", 0.1),
		},
		Gateways: GatewaysConfig{
			EnableStripe:   getEnvBool("ENABLE_STRIPE", false),
			EnableRazorpay: getEnvBool("ENABLE_RAZORPAY", false),
			EnableMock:     getEnvBool("ENABLE_MOCK", true),
			Stripe: StripeConfig{
				SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
				APIURL:    getEnv("STRIPE_API_URL", "https://api.stripe.com"),
			},
			Razorpay: RazorpayConfig{
				KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
				KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
				APIURL:    getEnv("RAZORPAY_API_URL", "https://api.razorpay.com"),
			},
			Mock: MockConfig{
				SuccessRate:      getEnvFloat("MOCK_GATEWAY_SUCCESS_RATE", 1.0),
				AverageLatencyMs: getEnvInt("MOCK_GATEWAY_AVERAGE_LATENCY_MS", 50),
				EnableChaos:      getEnvBool("MOCK_GATEWAY_ENABLE_CHAOS", false),
				ChaosRate:        getEnvFloat("MOCK_GATEWAY_CHAOS_RATE", 0.1),
			},
		},
		Jobs: JobConfig{
			DrainBatchSize:        getEnvInt("OUTBOX_DRAIN_BATCH_SIZE", 100),
			RetrySweepLimit:       getEnvInt("RETRY_SWEEP_LIMIT", 50),
			PurgeBatchSize:        getEnvInt("HOUSEKEEPER_BATCH_SIZE", 500),
			OutboxRetentionDays:   getEnvInt("OUTBOX_RETENTION_DAYS", 7),
			DeliveryRetentionDays: getEnvInt("DELIVERY_RETENTION_DAYS", 30),
			EventRetentionDays:    getEnvInt("EVENT_RETENTION_DAYS", 90),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects a startup with missing required variables.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}

	if c.Gateways.EnableStripe && c.Gateways.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY must be set when ENABLE_STRIPE=true")
	}
	if c.Gateways.EnableRazorpay && (c.Gateways.Razorpay.KeyID == "" || c.Gateways.Razorpay.KeySecret == "") {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set when ENABLE_RAZORPAY=true")
	}

	if c.Gateways.Mock.SuccessRate < 0 || c.Gateways.Mock.SuccessRate > 1 {
		return fmt.Errorf("MOCK_GATEWAY_SUCCESS_RATE must be within [0,1]")
	}

	if c.Webhook.MaxRetries <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
