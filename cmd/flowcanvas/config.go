package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/layout"
)

// Store kinds accepted by Config.Store.
const (
	storeMemory = "memory"
	storeLibSQL = "libsql"
	storeRedis  = "redis"
)

// Config holds all flowcanvas configuration.
// Priority: flags > env vars > settings.yaml > defaults.
type Config struct {
	ListenAddr      string `yaml:"listen_addr"`
	BackendURL      string `yaml:"backend_url"`
	BackendTimeout  string `yaml:"backend_timeout"`
	Store           string `yaml:"store"`
	DBPath          string `yaml:"db_path"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisPrefix     string `yaml:"redis_prefix"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	LayoutEngine    string `yaml:"layout_engine"`
	Direction       string `yaml:"direction"`
	ViewportWidth   int    `yaml:"viewport_width"`
	ViewportHeight  int    `yaml:"viewport_height"`
	CatalogSchedule string `yaml:"catalog_schedule"`
	ViewsFile       string `yaml:"views_file"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:     ":4200",
		BackendTimeout: "30s",
		Store:          storeMemory,
		DBPath:         filepath.Join(flowcanvasDir(), "drafts.db"),
		RedisAddr:      "localhost:6379",
		LogLevel:       "info",
		LogFormat:      "text",
		LayoutEngine:   layout.EngineLayered,
		Direction:      string(diagram.DirectionRight),
		ViewportWidth:  1280,
		ViewportHeight: 800,
	}
}

func flowcanvasDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowcanvas"
	}
	return filepath.Join(home, ".flowcanvas")
}

func settingsPath() string {
	return filepath.Join(flowcanvasDir(), "settings.yaml")
}

// loadConfig layers path (or the default settings file when path is empty)
// and FLOWCANVAS_* variables over the defaults. A missing default settings
// file is ignored; a missing explicit path is an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = settingsPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !os.IsNotExist(err):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	strs := map[string]*string{
		"FLOWCANVAS_LISTEN_ADDR":      &cfg.ListenAddr,
		"FLOWCANVAS_BACKEND_URL":      &cfg.BackendURL,
		"FLOWCANVAS_BACKEND_TIMEOUT":  &cfg.BackendTimeout,
		"FLOWCANVAS_STORE":            &cfg.Store,
		"FLOWCANVAS_DB_PATH":          &cfg.DBPath,
		"FLOWCANVAS_REDIS_ADDR":       &cfg.RedisAddr,
		"FLOWCANVAS_REDIS_PASSWORD":   &cfg.RedisPassword,
		"FLOWCANVAS_REDIS_PREFIX":     &cfg.RedisPrefix,
		"FLOWCANVAS_LOG_LEVEL":        &cfg.LogLevel,
		"FLOWCANVAS_LOG_FORMAT":       &cfg.LogFormat,
		"FLOWCANVAS_LAYOUT_ENGINE":    &cfg.LayoutEngine,
		"FLOWCANVAS_DIRECTION":        &cfg.Direction,
		"FLOWCANVAS_CATALOG_SCHEDULE": &cfg.CatalogSchedule,
		"FLOWCANVAS_VIEWS_FILE":       &cfg.ViewsFile,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FLOWCANVAS_REDIS_DB":        &cfg.RedisDB,
		"FLOWCANVAS_VIEWPORT_WIDTH":  &cfg.ViewportWidth,
		"FLOWCANVAS_VIEWPORT_HEIGHT": &cfg.ViewportHeight,
	}
	for key, dst := range ints {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
}

func (c Config) validate() error {
	switch c.Store {
	case storeMemory, storeLibSQL, storeRedis:
	default:
		return fmt.Errorf("unknown store %q (memory, libsql or redis)", c.Store)
	}
	if !diagram.Direction(c.Direction).Valid() {
		return fmt.Errorf("unknown direction %q", c.Direction)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	return nil
}

func (c Config) viewport() layout.Size {
	return layout.Size{Width: float64(c.ViewportWidth), Height: float64(c.ViewportHeight)}
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.BackendURL != new.BackendURL {
		d.RestartNeeded = append(d.RestartNeeded, "backend_url")
	}
	if old.Store != new.Store || old.DBPath != new.DBPath || old.RedisAddr != new.RedisAddr {
		d.RestartNeeded = append(d.RestartNeeded, "store")
	}
	if old.LayoutEngine != new.LayoutEngine {
		d.RestartNeeded = append(d.RestartNeeded, "layout_engine")
	}
	return d
}
