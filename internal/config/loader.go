package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/portfolio/pkg/log"
)

// Store types
const (
	StoreTypeMemory = "memory"
	StoreTypeMongo  = "mongo"
)

// Default returns the configuration used when no file or environment
// overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxHeaderBytes:  1048576,
			Mode:            "release",
		},
		Store: StoreConfig{
			Type:             StoreTypeMongo,
			Database:         "ava",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				Algorithm: "HS256",
				ExpiresIn: 24 * time.Hour,
				Issuer:    "portfolio",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			TimeFormat: time.RFC3339,
			AccessLog:  true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "portfolio",
		},
		Tracing: TracingConfig{
			ServiceName: "portfolio",
			SampleRate:  1.0,
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		},
	}
}

// Load loads configuration from file with environment variable overrides.
// Variables from a .env file in the working directory are loaded first; they
// never replace variables already present in the environment.
func Load(configFile string) (*Config, error) {
	return load(configFile, ".env")
}

func load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %s", filename)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if addr := os.Getenv("PORTFOLIO_SERVER_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}

	if storeType := os.Getenv("PORTFOLIO_STORE_TYPE"); storeType != "" {
		cfg.Store.Type = storeType
	}
	if uri := os.Getenv("MONGOURI"); uri != "" {
		cfg.Store.URI = uri
	}
	if database := os.Getenv("PORTFOLIO_DATABASE"); database != "" {
		cfg.Store.Database = database
	}
	if timeout := os.Getenv("PORTFOLIO_STORE_OPERATION_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid PORTFOLIO_STORE_OPERATION_TIMEOUT: %w", err)
		}
		cfg.Store.OperationTimeout = d
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.Auth.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("PORTFOLIO_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if endpoint := os.Getenv("PORTFOLIO_TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = endpoint
	}

	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	switch cfg.Store.Type {
	case StoreTypeMemory:
	case StoreTypeMongo:
		if cfg.Store.URI == "" {
			return fmt.Errorf("store uri cannot be empty for store type %s (set MONGOURI)", StoreTypeMongo)
		}
		if cfg.Store.Database == "" {
			return fmt.Errorf("store database cannot be empty")
		}
	default:
		return fmt.Errorf("invalid store type: %s", cfg.Store.Type)
	}

	if cfg.Auth.JWT.Secret == "" {
		return fmt.Errorf("JWT secret cannot be empty (set JWT_SECRET)")
	}
	if cfg.Auth.JWT.ExpiresIn <= 0 {
		return fmt.Errorf("JWT expiry must be positive")
	}

	if _, err := log.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", cfg.Metrics.Path)
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.ServiceName == "" {
			return fmt.Errorf("tracing service name cannot be empty")
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate must be within [0, 1]: %v", cfg.Tracing.SampleRate)
		}
	}

	validModes := map[string]bool{
		"debug":   true,
		"release": true,
		"test":    true,
	}
	if !validModes[cfg.Server.Mode] {
		return fmt.Errorf("invalid server mode: %s", cfg.Server.Mode)
	}

	return nil
}
