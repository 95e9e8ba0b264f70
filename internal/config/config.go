package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	EnableRedis bool
	RedisURL    string

	// JWT
	JWTSecret string

	// Server
	Port        string
	Environment string

	// CORS
	CORSOrigins []string

	// Klarna credentials, one pair per environment.
	KlarnaTestMode         bool
	KlarnaMerchantID       string
	KlarnaSharedSecret     string
	KlarnaTestMerchantID   string
	KlarnaTestSharedSecret string
	KlarnaWebhookSecret    string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int

	// Features
	EnableMetrics bool

	// Storefront
	SiteURL string
	// PublicURL is this service's externally reachable base, used for the
	// Klarna notification callback.
	PublicURL string
	// ShipToBillingOnly forces the shipping address to mirror billing even
	// when the shopper asks for a separate one.
	ShipToBillingOnly bool
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "checkout"),
		DBPassword: getEnv("DB_PASSWORD", "checkout"),
		DBName:     getEnv("DB_NAME", "checkoutdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Klarna
		KlarnaTestMode:         getEnvAsBool("KLARNA_TESTMODE", true),
		KlarnaMerchantID:       getEnv("KLARNA_MERCHANT_ID_US", ""),
		KlarnaSharedSecret:     getEnv("KLARNA_SHARED_SECRET_US", ""),
		KlarnaTestMerchantID:   getEnv("KLARNA_TEST_MERCHANT_ID_US", ""),
		KlarnaTestSharedSecret: getEnv("KLARNA_TEST_SHARED_SECRET_US", ""),
		KlarnaWebhookSecret:    getEnv("KLARNA_WEBHOOK_SECRET", ""),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Storefront
		SiteURL:           getEnv("SITE_URL", "http://localhost:8081"),
		PublicURL:         getEnv("PUBLIC_URL", "http://localhost:8080"),
		ShipToBillingOnly: getEnvAsBool("SHIP_TO_BILLING_ONLY", false),
	}

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
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
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
