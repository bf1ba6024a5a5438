package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	Version  string

	PostgresDSN string
	DBMaxConns  int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	MigrationsDir string
	SeedsDir      string

	FCM  FCMConfig
	APNS APNSConfig
}

type FCMConfig struct {
	ServerKey string
	BaseURL   string
}

type APNSConfig struct {
	SigningKeyPEM string
	KeyID         string
	TeamID        string
	Topic         string
	BaseURL       string
}

// Load reads configuration from the environment. In dev a .env file is
// loaded first so local runs need no exported variables.
func Load() Config {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Version:     getEnv("APP_VERSION", "dev"),
		PostgresDSN: getEnv("PG_DSN", ""),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 30*time.Minute),
		RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 14*24*time.Hour),
		ResetTTL:   getEnvDuration("JWT_RESET_TTL", 10*time.Minute),

		MigrationsDir: getEnv("MIGRATIONS_DIR", "ops/migrations/sql"),
		SeedsDir:      getEnv("SEEDS_DIR", "ops/migrations/seeds"),

		FCM: FCMConfig{
			ServerKey: getEnv("FCM_SERVER_KEY", ""),
			BaseURL:   getEnv("FCM_BASE_URL", ""),
		},
		APNS: APNSConfig{
			SigningKeyPEM: getEnv("APNS_SIGNING_KEY", ""),
			KeyID:         getEnv("APNS_KEY_ID", ""),
			TeamID:        getEnv("APNS_TEAM_ID", ""),
			Topic:         getEnv("APNS_TOPIC", ""),
			BaseURL:       getEnv("APNS_BASE_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if raw, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if raw, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(raw); err == nil {
			return value
		}
	}
	return defaultValue
}
