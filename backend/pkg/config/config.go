package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Explorer
	DefaultFilterLevel float64 // Initial semantic-zoom level for a new focus
	FilterStep         float64 // Level delta applied per zoom gesture
	VisibleFloor       int     // Downstream neighbors shown at level 0
	VisibleRamp        int     // Additional neighbors revealed across the level range
	DebounceMillis     int     // Window for coalescing reclassification/re-center triggers
	CacheTTLMinutes    int     // Entity cache entry lifetime
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		Neo4jURI:           getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:          getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:      getEnv("NEO4J_PASSWORD", "password"),
		DefaultFilterLevel: getEnvFloat("DEFAULT_FILTER_LEVEL", 0.5),
		FilterStep:         getEnvFloat("FILTER_STEP", 0.1),
		VisibleFloor:       getEnvInt("VISIBLE_FLOOR", 3),
		VisibleRamp:        getEnvInt("VISIBLE_RAMP", 20),
		DebounceMillis:     getEnvInt("DEBOUNCE_MILLIS", 120),
		CacheTTLMinutes:    getEnvInt("CACHE_TTL_MINUTES", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and sane
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.DefaultFilterLevel < 0 || c.DefaultFilterLevel > 1 {
		return fmt.Errorf("DEFAULT_FILTER_LEVEL must be in [0,1]")
	}
	if c.VisibleFloor < 1 {
		return fmt.Errorf("VISIBLE_FLOOR must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
