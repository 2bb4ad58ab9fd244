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
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Messenger struct {
		APIURL      string `yaml:"api_url"`
		AccessToken string `yaml:"access_token"`
		VerifyToken string `yaml:"verify_token"`
	} `yaml:"messenger"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error: hosted deployments configure everything
// through the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers the platform environment variables over the file values.
// Absence is not validated here; only the store connection is checked, at
// startup.
func applyEnv(cfg *Config) {
	if v := os.Getenv("META_ACCESS_TOKEN"); v != "" {
		cfg.Messenger.AccessToken = v
	}
	if v := os.Getenv("META_VERIFY_TOKEN"); v != "" {
		cfg.Messenger.VerifyToken = v
	}
	if v := os.Getenv("MONGO_CONNECTION_STRING"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
