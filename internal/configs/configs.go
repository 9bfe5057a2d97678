/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, chat and health listen addresses, connection
rate limits, and the password hashing mode.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string

	// ListenAddr is the TCP address the chat protocol listens on.
	ListenAddr string

	// HealthAddr is the HTTP address of the health/status endpoint.
	// Empty disables the endpoint.
	HealthAddr string

	// Connection Rate Limiting (token bucket per client IP)
	ConnRate  float64
	ConnBurst int

	// PasswordHashing selects the hasher: "plain" or "bcrypt".
	PasswordHashing string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary
// type conversions and validation. It returns a pointer to the AppConfig struct
// and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.ListenAddr = os.Getenv("LISTEN_ADDR")
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":12345"
	}

	cfg.HealthAddr = os.Getenv("HEALTH_ADDR")
	if cfg.HealthAddr == "" {
		cfg.HealthAddr = ":8080"
	}

	// --- Connection Rate Limiting ---
	rateStr := os.Getenv("CONN_RATE")
	if rateStr == "" {
		rateStr = "5"
	}
	connRate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CONN_RATE environment variable: %w", err)
	}
	if connRate <= 0 {
		return nil, fmt.Errorf("CONN_RATE must be positive, got %v", connRate)
	}
	cfg.ConnRate = connRate

	burstStr := os.Getenv("CONN_BURST")
	if burstStr == "" {
		burstStr = "10"
	}
	connBurst, err := strconv.Atoi(burstStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CONN_BURST environment variable: %w", err)
	}
	if connBurst < 1 {
		return nil, fmt.Errorf("CONN_BURST must be at least 1, got %d", connBurst)
	}
	cfg.ConnBurst = connBurst

	// --- Password Hashing ---
	cfg.PasswordHashing = os.Getenv("PASSWORD_HASHING")
	switch cfg.PasswordHashing {
	case "":
		cfg.PasswordHashing = "plain"
	case "plain", "bcrypt":
	default:
		return nil, fmt.Errorf("invalid PASSWORD_HASHING value %q (want plain or bcrypt)", cfg.PasswordHashing)
	}

	return cfg, nil
}
