package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// Database backend: "postgres" or "sqlite", plus its DSN.
	DBDriver    string
	DatabaseURL string
	BunDebug    bool

	// Static front-end shell served at /
	StaticDir string

	// CORS
	AllowedOrigins []string

	// Importer
	ImportFetchTimeout time.Duration
}

// Load loads environment variables and returns a Config struct
func Load() *Config {
	_ = godotenv.Load()

	fetchTimeoutSec, _ := strconv.Atoi(getEnv("IMPORT_FETCH_TIMEOUT_SECONDS", "60"))

	// Parse allowed origins from env (comma-separated)
	allowedOrigins := strings.Split(
		getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		",",
	)

	return &Config{
		Port:               getEnv("APP_PORT", "5000"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:database/globe.db"),
		BunDebug:           getEnvAsBool("BUNDEBUG", false),
		StaticDir:          getEnv("STATIC_DIR", "static"),
		AllowedOrigins:     allowedOrigins,
		ImportFetchTimeout: time.Duration(fetchTimeoutSec) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}
