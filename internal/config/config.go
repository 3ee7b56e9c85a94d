// Package config loads the recognized configuration options of spec §6:
// useCustomPort, customPort, autoStartSync, plus the role and project path
// needed to stand the core up. Shape and env-override style follow the
// teacher's singleton/yaml.v2 configuration loader.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/loopsync/core/internal/transport"
)

// Config is the full set of options the core recognizes.
type Config struct {
	Role          transport.Role `yaml:"role"`
	ProjectPath   string         `yaml:"project_path"`
	IDEType       string         `yaml:"ide_type"`
	IDEName       string         `yaml:"ide_name"`
	UseCustomPort bool           `yaml:"use_custom_port"`
	CustomPort    int            `yaml:"custom_port"`
	AutoStartSync bool           `yaml:"auto_start_sync"`
	DebugAddr     string         `yaml:"debug_addr"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton config, loaded from CONFIG_PATH (or
// "loopsync.yaml") on first use, with environment overrides and defaults
// applied.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "loopsync.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// LoadConfig reads and decodes a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if role := getEnv("LOOPSYNC_ROLE", ""); role != "" {
		c.Role = transport.Role(role)
	}
	c.ProjectPath = getEnv("LOOPSYNC_PROJECT_PATH", c.ProjectPath)
	c.IDEType = getEnv("LOOPSYNC_IDE_TYPE", c.IDEType)
	c.IDEName = getEnv("LOOPSYNC_IDE_NAME", c.IDEName)
	c.DebugAddr = getEnv("LOOPSYNC_DEBUG_ADDR", c.DebugAddr)
	c.UseCustomPort = getEnvBool("LOOPSYNC_USE_CUSTOM_PORT", c.UseCustomPort)
	if v := getEnvInt("LOOPSYNC_CUSTOM_PORT", 0); v > 0 {
		c.CustomPort = v
	}
	c.AutoStartSync = getEnvBool("LOOPSYNC_AUTO_START_SYNC", c.AutoStartSync)
}

// applyDefaults fills in the defaults named in spec §6.
func (c *Config) applyDefaults() {
	if c.CustomPort == 0 {
		c.CustomPort = 3000
	}
	if c.IDEType == "" {
		c.IDEType = "console"
	}
	if c.IDEName == "" {
		c.IDEName = "loopsync-console"
	}
	if c.DebugAddr == "" {
		c.DebugAddr = "127.0.0.1:9292"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
