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

	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/schedule"
	"github.com/fleetops/shiftd/core/telemetry"
	"github.com/fleetops/shiftd/infra/mqtt"
	"github.com/fleetops/shiftd/infra/platform"
	"github.com/fleetops/shiftd/infra/relay"
)

// Config is the root configuration for the shiftd service.
type Config struct {
	MQTT      mqtt.Config      `json:"mqtt"`
	Platform  platform.Config  `json:"platform"`
	Scheduler schedule.Config  `json:"scheduler"`
	Telemetry telemetry.Config `json:"telemetry"`
	Relay     relay.Config     `json:"relay"`
	Metrics   metrics.Config   `json:"metrics"`
}

// Load reads the configuration file (YAML or JSON) and applies
// K_-prefixed environment overrides.
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
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Platform.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Telemetry.SetDefaults()
	cfg.Relay.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
