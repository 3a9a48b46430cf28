package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Provider struct {
		SnapshotDir string `yaml:"snapshot_dir"`
		CacheSize   int    `yaml:"cache_size"`
		CacheTTL    string `yaml:"cache_ttl"`
	} `yaml:"provider"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	// Rules overrides the per-step decision-rule thresholds used at
	// verification time, keyed by step number 1..6. Steps left out keep
	// the built-in defaults.
	Rules map[int]RuleConfig `yaml:"rules"`
}

// RuleConfig is one step's classification rule: strictly descending
// thresholds, one fewer than options. A value above thresholds[i] maps
// to options[i]; anything below the last threshold maps to the final
// option.
type RuleConfig struct {
	Thresholds []float64 `yaml:"thresholds"`
	Options    []string  `yaml:"options"`
}

// Load reads YAML config from path and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if
// empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
