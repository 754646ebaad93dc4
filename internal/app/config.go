package app

import (
	"fmt"
	"strings"

	coreconfig "elpbot/core/config"
	coredatabase "elpbot/core/database"
	"elpbot/internal/knowledge"
	"elpbot/internal/notify"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageNone     = "none"
)

// BrokerConfig holds the contacts quoted in the menu texts.
type BrokerConfig struct {
	Phone string `yaml:"phone" envconfig:"BROKER_PHONE"`
	Email string `yaml:"email" envconfig:"BROKER_EMAIL"`
}

// StorageConfig picks the lead store. An empty driver means postgres when a database is configured.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// HealthConfig controls the plain HTTP liveness endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"HEALTH_ENABLED"`
	Listen  string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
	// Port is the hosting platform's PORT; it enables the endpoint on its own.
	Port string `yaml:"port" envconfig:"PORT"`
}

// Addr returns the listen address, or "" when the endpoint is off.
func (h HealthConfig) Addr() string {
	if l := strings.TrimSpace(h.Listen); l != "" {
		return l
	}
	if p := strings.TrimSpace(h.Port); p != "" {
		return ":" + p
	}
	if h.Enabled {
		return ":8080"
	}
	return ""
}

// Config is the full ELP bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	SMTP     notify.SMTPConfig   `yaml:"smtp"`
	Broker   BrokerConfig        `yaml:"broker"`
	Storage  StorageConfig       `yaml:"storage"`
	Health   HealthConfig        `yaml:"health"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// KnowledgeBroker maps the configured contacts onto the knowledge store.
func (c *Config) KnowledgeBroker() knowledge.Broker {
	return knowledge.Broker{Phone: strings.TrimSpace(c.Broker.Phone), Email: strings.TrimSpace(c.Broker.Email)}
}

// LoadConfig reads path (optional) and the environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core section and settles the storage driver.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch driver {
	case "":
		driver = StorageNone
		if c.Database.Enabled() {
			driver = StoragePostgres
		}
	case StoragePostgres, StorageMemory, StorageNone:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory, none", c.Storage.Driver)
	}
	c.Storage.Driver = driver
	if c.SMTP.Port < 0 {
		return fmt.Errorf("smtp.port must be >= 0")
	}
	return nil
}
