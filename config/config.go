// Package config provides application configuration loaded from a .env file
// and environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"projets/formula"
)

// Config holds all application configuration.
type Config struct {
	// ValidationMode selects when circular dependencies are checked
	// transitively: on every change, or only when the quote is saved.
	ValidationMode formula.ValidationMode
	// DefaultManagementPercentage is applied to new projects and positions.
	DefaultManagementPercentage float64
	// Seed inserts sample projects on an empty database.
	Seed bool
}

// Load reads configuration from the environment, after loading .env from
// the working directory when present. Invalid values fall back to defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: Load: could not read .env: %v", err)
	}

	mode, err := formula.ParseValidationMode(getEnv("PROJETS_VALIDATION_MODE", "change"))
	if err != nil {
		log.Printf("config: Load: %v, using %q", err, mode)
	}

	defaults := Default()
	return &Config{
		ValidationMode:              mode,
		DefaultManagementPercentage: getEnvFloat("PROJETS_DEFAULT_PM_PERCENT", defaults.DefaultManagementPercentage),
		Seed:                        getEnvBool("PROJETS_SEED", defaults.Seed),
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ValidationMode:              formula.ValidateOnChange,
		DefaultManagementPercentage: 10,
		Seed:                        true,
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat returns the float value of an environment variable or a
// default. Negative values are rejected.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
