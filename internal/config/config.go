package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AERIAL_"

// PathEnv names the optional YAML config file.
const PathEnv = "AERIAL_CONFIG_PATH"

// ErrConfigurationMissing indicates required settings are absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	DB       DBConfig       `yaml:"db" envPrefix:"DB_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Identity IdentityConfig `yaml:"identity" envPrefix:"IDENTITY_"`
	Seed     SeedConfig     `yaml:"seed" envPrefix:"SEED_"`
	Portal   PortalConfig   `yaml:"portal" envPrefix:"PORTAL_"`
	Otel     OtelConfig     `yaml:"otel" envPrefix:"OTEL_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	Path  string `yaml:"path" env:"PATH"`
}

// AppConfig identifies the deployment whose documents are served.
type AppConfig struct {
	ID        string `yaml:"id" env:"ID"`
	ProjectID string `yaml:"project_id" env:"PROJECT_ID"`
}

// IdentityConfig configures token signing.
type IdentityConfig struct {
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	Issuer     string        `yaml:"issuer" env:"ISSUER"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

type SeedConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// PortalConfig bounds how many viewer portals are kept in memory and for how long.
type PortalConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" env:"IDLE_TTL"`
	MaxPortals    int           `yaml:"max_portals" env:"MAX_PORTALS"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// OtelConfig enables trace export when Endpoint is set.
type OtelConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "aerial.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		App: AppConfig{
			ID: "drone-business-default-id",
		},
		Identity: IdentityConfig{
			SessionTTL: 24 * time.Hour,
		},
		Seed: SeedConfig{
			Enabled: true,
		},
		Portal: PortalConfig{
			IdleTTL:       30 * time.Minute,
			MaxPortals:    1000,
			SweepInterval: time.Minute,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and environment
// variables, in that order. It does not validate required settings.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(PathEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate reports ErrConfigurationMissing naming every absent required setting.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.App.ID) == "" {
		missing = append(missing, "app.id")
	}
	if strings.TrimSpace(c.App.ProjectID) == "" {
		missing = append(missing, "app.project_id")
	}
	if strings.TrimSpace(c.Identity.APIKey) == "" {
		missing = append(missing, "identity.api_key")
	}
	if strings.TrimSpace(c.Identity.Issuer) == "" {
		missing = append(missing, "identity.issuer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	if strings.Contains(c.App.ID, "/") {
		return fmt.Errorf("invalid app.id %q: must not contain '/'", c.App.ID)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Portal.SweepInterval <= 0 {
		return fmt.Errorf("invalid portal.sweep_interval %s: must be positive", c.Portal.SweepInterval)
	}
	if c.Portal.IdleTTL < 0 || c.Portal.MaxPortals < 0 {
		return errors.New("invalid portal limits: must not be negative")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
