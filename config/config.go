// ABOUTME: Client configuration resolved once at startup
// ABOUTME: Layers defaults, an optional YAML file, .env and environment variables
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName names the XDG directories used by the client.
	AppName = "crmdesk"

	// DefaultAPIURL matches the API's development port.
	DefaultAPIURL = "http://localhost:5001"

	// ConfigFileName is looked up under the XDG config directory.
	ConfigFileName = "config.yaml"
)

// Config holds everything the client needs before the first request.
type Config struct {
	API  APIConfig  `koanf:"api"`
	Data DataConfig `koanf:"data"`
	Log  LogConfig  `koanf:"log"`
}

type APIConfig struct {
	// URL is the API base address without the /api prefix
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is requests per second; zero disables limiting
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

type DataConfig struct {
	// Dir holds the persisted session database
	Dir string `koanf:"dir"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	// File receives logs while the TUI owns the terminal
	File string `koanf:"file"`
}

// DefaultConfigPath returns the XDG path of the optional config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load resolves the configuration. An empty path falls back to the XDG
// config file, which may be absent.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	apiURL := DefaultAPIURL
	// Honour the variable the web client was deployed with.
	if legacy := os.Getenv("REACT_APP_API_URL"); legacy != "" {
		apiURL = legacy
	}

	defaults := map[string]any{
		"api.url":        apiURL,
		"api.timeout":    "15s",
		"api.rate_limit": 20.0,
		"api.burst":      10,

		"data.dir": filepath.Join(xdg.DataHome, AppName),

		"log.level": "info",
		"log.file":  filepath.Join(xdg.StateHome, AppName, "crmdesk.log"),
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"CRMDESK_API_URL":        "api.url",
	"CRMDESK_API_TIMEOUT":    "api.timeout",
	"CRMDESK_API_RATE_LIMIT": "api.rate_limit",
	"CRMDESK_API_BURST":      "api.burst",
	"CRMDESK_DATA_DIR":       "data.dir",
	"CRMDESK_LOG_LEVEL":      "log.level",
	"CRMDESK_LOG_FILE":       "log.file",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must be an http(s) address, got %q", c.API.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.url has no host: %q", c.API.URL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}

	return nil
}
