package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	defaultDatabasePath   = "library.db"
	defaultPort           = 8080
	defaultJWTExpiryHours = 24
	defaultPageLimit      = 100
	defaultMaxPageLimit   = 1000

	// used only when JWT_SECRET is unset; never deploy with this
	devJWTSecret = "dev-only-insecure-secret-change-me"
)

type Config struct {
	// database path
	DatabasePath string

	// HTTP listener
	Port int

	// token signing
	JWTSecret      string
	JWTExpiryHours int

	// CORS
	CORSAllowedOrigins []string

	// optional bootstrap superuser, created at startup when both are set
	FirstSuperuserEmail    string
	FirstSuperuserPassword string

	// pagination defaults
	DefaultPageLimit int
	MaxPageLimit     int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", defaultDatabasePath)
	port := getEnvIntOrDefault("PORT", defaultPort)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("Warning: JWT_SECRET is not set; falling back to an insecure development secret")
		secret = devJWTSecret
	}
	expiryHours := getEnvIntOrDefault("JWT_EXPIRY_HOURS", defaultJWTExpiryHours)

	origins := strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	defaultLimit := getEnvIntOrDefault("DEFAULT_PAGE_LIMIT", defaultPageLimit)
	maxLimit := getEnvIntOrDefault("MAX_PAGE_LIMIT", defaultMaxPageLimit)
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	cfg := Config{
		DatabasePath:           dbPath,
		Port:                   port,
		JWTSecret:              secret,
		JWTExpiryHours:         expiryHours,
		CORSAllowedOrigins:     origins,
		FirstSuperuserEmail:    os.Getenv("FIRST_SUPERUSER_EMAIL"),
		FirstSuperuserPassword: os.Getenv("FIRST_SUPERUSER_PASSWORD"),
		DefaultPageLimit:       defaultLimit,
		MaxPageLimit:           maxLimit,
	}

	return cfg, nil
}
