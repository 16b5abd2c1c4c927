package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Agent configures cmd/syncagent.
type Agent struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
	UserName string `yaml:"user_name"`

	// JWTSecret lets the agent mint its own token in development when Token
	// is empty.
	JWTSecret string `yaml:"jwt_secret"`

	Chat string `yaml:"chat"`
	Push bool   `yaml:"push"`

	MessageInterval   time.Duration `yaml:"message_interval"`
	DirectoryInterval time.Duration `yaml:"directory_interval"`
	BoardInterval     time.Duration `yaml:"board_interval"`

	Store StoreConfig `yaml:"store"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
}

// StoreConfig picks the local state backend.
type StoreConfig struct {
	// Backend is "memory", "pebble" or "redis".
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	RedisURL string `yaml:"redis_url"`
}

func defaultAgent() Agent {
	return Agent{
		BaseURL:           "http://localhost:8083",
		MessageInterval:   5 * time.Second,
		DirectoryInterval: 10 * time.Second,
		BoardInterval:     30 * time.Second,
		Store:             StoreConfig{Backend: "pebble", Dir: "./.teamchat"},
		LogLevel:          "info",
	}
}

// LoadAgent reads path (when non-empty) over the defaults, then applies
// TEAMCHAT_* environment overrides.
func LoadAgent(path string) (Agent, error) {
	cfg := defaultAgent()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Agent{}, fmt.Errorf("read agent config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Agent{}, fmt.Errorf("parse agent config: %w", err)
		}
	}

	cfg.BaseURL = GetEnv("TEAMCHAT_BASE_URL", cfg.BaseURL)
	cfg.Token = GetEnv("TEAMCHAT_TOKEN", cfg.Token)
	cfg.UserID = GetEnv("TEAMCHAT_USER_ID", cfg.UserID)
	cfg.UserName = GetEnv("TEAMCHAT_USER_NAME", cfg.UserName)
	cfg.JWTSecret = GetEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.Chat = GetEnv("TEAMCHAT_CHAT", cfg.Chat)
	cfg.Push = GetEnvBool("TEAMCHAT_PUSH", cfg.Push)
	cfg.MessageInterval = GetEnvDuration("TEAMCHAT_MESSAGE_INTERVAL", cfg.MessageInterval)
	cfg.DirectoryInterval = GetEnvDuration("TEAMCHAT_DIRECTORY_INTERVAL", cfg.DirectoryInterval)
	cfg.BoardInterval = GetEnvDuration("TEAMCHAT_BOARD_INTERVAL", cfg.BoardInterval)
	cfg.Store.Backend = GetEnv("TEAMCHAT_STORE", cfg.Store.Backend)
	cfg.Store.Dir = GetEnv("TEAMCHAT_STORE_DIR", cfg.Store.Dir)
	cfg.Store.RedisURL = GetEnv("TEAMCHAT_REDIS_URL", cfg.Store.RedisURL)
	cfg.MetricsAddr = GetEnv("TEAMCHAT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = GetEnvBool("LOG_PRETTY", cfg.LogPretty)

	return cfg, cfg.Validate()
}

// Validate checks the fields the agent cannot run without.
func (a Agent) Validate() error {
	if a.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if a.UserID == "" {
		return errors.New("user_id is required")
	}
	if a.Token == "" && a.JWTSecret == "" {
		return errors.New("token or jwt_secret is required")
	}
	switch a.Store.Backend {
	case "memory":
	case "pebble":
		if a.Store.Dir == "" {
			return errors.New("store.dir is required for pebble")
		}
	case "redis":
		if a.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for redis")
		}
	default:
		return fmt.Errorf("unknown store backend %q", a.Store.Backend)
	}
	return nil
}
