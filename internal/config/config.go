package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

const (
	StorageMemory  = "memory"
	StorageMongoDB = "mongodb"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	Storage struct {
		Driver string `json:"driver"` // "memory" or "mongodb"
	} `json:"storage"`
	MongoDB struct {
		URI      string `json:"uri"`
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	JWT struct {
		AccessSecret  string `json:"accessSecret"`
		RefreshSecret string `json:"refreshSecret"`
		AccessTTL     int    `json:"accessTtl"`  // in minutes
		RefreshTTL    int    `json:"refreshTtl"` // in days
	} `json:"jwt"`
	OAuth struct {
		GoogleClientID     string `json:"googleClientId"`
		GoogleClientSecret string `json:"googleClientSecret"`
		GoogleRedirectURL  string `json:"googleRedirectUrl"`
	} `json:"oauth"`
	Admin struct {
		AllowClear bool `json:"allowClear"`
	} `json:"admin"`
	EventBus struct {
		Enabled bool `json:"enabled"`
	} `json:"eventBus"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Environment = env
	return cfg, nil
}

// Parse decodes a config document after expanding ${VAR} references and
// fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 60
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 30
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			result = multierror.Append(result, errors.New("mongodb.uri is required for the mongodb driver"))
		}
		if c.MongoDB.Database == "" {
			result = multierror.Append(result, errors.New("mongodb.database is required for the mongodb driver"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if c.JWT.AccessSecret == "" {
		result = multierror.Append(result, errors.New("jwt.accessSecret is required"))
	}
	if c.JWT.RefreshSecret == "" {
		result = multierror.Append(result, errors.New("jwt.refreshSecret is required"))
	}
	if c.EventBus.Enabled && c.Storage.Driver != StorageMongoDB {
		result = multierror.Append(result, errors.New("eventBus requires the mongodb driver"))
	}

	return result.ErrorOrNil()
}

// GoogleOAuthEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret != ""
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("CHESS_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
