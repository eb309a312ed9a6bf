package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MetricsEnabled bool
}

// DatabaseConfig holds the MongoDB connection settings. An empty URI selects
// the in-memory message store, which is only meant for tests and local runs.
type DatabaseConfig struct {
	URI  string
	Name string
}

// MediaConfig holds the local attachment store settings.
type MediaConfig struct {
	Dir     string
	BaseURL string
}

// Config is the complete application configuration.
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Media          *MediaConfig
	JWTSecret      string
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		RequestTimeout: 5 * time.Second,
		MetricsEnabled: true,
	}
}

// LoadConfig loads configuration from the environment, reading a .env file
// first if one is present.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		serverConfig.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}
	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", timeoutStr, err)
		}
		serverConfig.RequestTimeout = timeout
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	dbConfig := &DatabaseConfig{
		URI:  os.Getenv("MONGODB_URI"),
		Name: getEnvOrDefault("MONGODB_DATABASE", "ripple"),
	}

	mediaConfig := &MediaConfig{
		Dir:     getEnvOrDefault("MEDIA_DIR", "uploads"),
		BaseURL: getEnvOrDefault("MEDIA_BASE_URL", "/media"),
	}

	cfg := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Media:          mediaConfig,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: []string{"*"},
		Debug:          os.Getenv("DEBUG") == "true",
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
