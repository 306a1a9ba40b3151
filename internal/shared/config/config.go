package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret signs operator tokens when JWT_SECRET is unset outside release
// mode. Validate refuses it in release mode.
const DevJWTSecret = "change-me-raffle-secret"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set in release mode")

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port            string
	GinMode         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	AllowedOrigins  []string

	Raffle      RaffleConfig
	MercadoPago MercadoPagoConfig
	Access      AccessConfig
	JWT         JWTConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig

	// Logging
	LogLevel string
}

// RaffleConfig describes the ticket inventory and its hold policy
type RaffleConfig struct {
	TicketCount      int
	TicketWidth      int
	UnitPrice        float64
	HoldDuration     time.Duration
	MaxHold          time.Duration
	PollInterval     time.Duration
	PayerEmailDomain string
}

// MercadoPagoConfig holds the payment processor credentials
type MercadoPagoConfig struct {
	AccessToken string
	PublicKey   string
	BaseURL     string
	Timeout     time.Duration
}

// AccessConfig holds the operator password gate
type AccessConfig struct {
	Password     string
	PasswordHash string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	IdempotencyTTL time.Duration
}

// KafkaConfig holds the ticket event producer configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TicketTopic string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	CheckoutRequests int           `json:"checkout_requests"`
	AccessRequests   int           `json:"access_requests"`
	AdminRequests    int           `json:"admin_requests"`
	HealthRequests   int           `json:"health_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		AllowedOrigins:  getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{}),

		Raffle: RaffleConfig{
			TicketCount:      getIntEnv("TICKET_COUNT", 200),
			TicketWidth:      getIntEnv("TICKET_WIDTH", 3),
			UnitPrice:        getFloatEnv("TICKET_UNIT_PRICE", 5),
			HoldDuration:     getDurationEnv("RESERVATION_HOLD_DURATION", 5*time.Minute),
			MaxHold:          getDurationEnv("RESERVATION_MAX_HOLD", 30*time.Minute),
			PollInterval:     getDurationEnv("PAYMENT_POLL_INTERVAL", 5*time.Second),
			PayerEmailDomain: getEnv("PAYER_EMAIL_DOMAIN", "subzerobeer.com"),
		},

		MercadoPago: MercadoPagoConfig{
			AccessToken: getEnv("MERCADO_PAGO_ACCESS_TOKEN", ""),
			PublicKey:   getEnv("MERCADO_PAGO_PUBLIC_KEY", ""),
			BaseURL:     getEnv("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com"),
			Timeout:     getDurationEnv("MERCADO_PAGO_TIMEOUT", 15*time.Second),
		},

		Access: AccessConfig{
			Password:     getEnv("ACCESS_PASSWORD", getEnv("PASSWORD", "")),
			PasswordHash: getEnv("ACCESS_PASSWORD_HASH", ""),
		},

		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", DevJWTSecret),
			JWTExpiresIn: getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
		},

		Database: DatabaseConfig{
			Enabled:  getBoolEnv("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "raffle_db"),
			User:     getEnv("DB_USER", "raffle_user"),
			Password: getEnv("DB_PASSWORD", "raffle_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Enabled:        getBoolEnv("REDIS_ENABLED", false),
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},

		Kafka: KafkaConfig{
			Enabled:     getBoolEnv("KAFKA_ENABLED", false),
			Brokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			TicketTopic: getEnv("KAFKA_TICKET_TOPIC", "ticket-events"),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			CheckoutRequests: getIntEnv("RATE_LIMIT_CHECKOUT_REQUESTS", 20),
			AccessRequests:   getIntEnv("RATE_LIMIT_ACCESS_REQUESTS", 10),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 100),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// Validate rejects settings that are only acceptable during development
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == DevJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}
