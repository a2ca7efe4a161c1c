package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/powergrid-labs/blackoutd/core/metrics"
	"github.com/powergrid-labs/blackoutd/core/recovery"
	"github.com/powergrid-labs/blackoutd/infra/mqtt"
)

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8002"
	}
}

type Config struct {
	Server   ServerConfig    `json:"server"`
	Metrics  metrics.Config  `json:"metrics"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Recovery recovery.Config `json:"recovery"`
	Zones    []ZoneConfig    `json:"zones"`
}

// Load reads the configuration file and applies environment overrides with
// the BD_ prefix (BD_SERVER__ADDR maps to server.addr).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("BD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "bd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in unset sections, including the built-in zone catalog
// when none is configured.
func (c *Config) ApplyDefaults() {
	c.Server.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Recovery.SetDefaults()
	if len(c.Zones) == 0 {
		c.Zones = DefaultZones()
	}
}

// Validate checks the zone catalog.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Zones))
	for _, z := range c.Zones {
		if z.ID == "" {
			return fmt.Errorf("zone with empty id")
		}
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone id %s", z.ID)
		}
		seen[z.ID] = true
		if z.CapacityMW <= 0 {
			return fmt.Errorf("zone %s: capacity_mw must be positive", z.ID)
		}
		if z.BackupCapacityMW < 0 || z.BackupDurationHours < 0 {
			return fmt.Errorf("zone %s: backup values must not be negative", z.ID)
		}
	}
	return nil
}
