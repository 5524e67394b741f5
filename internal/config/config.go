package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultTimezone      = "UTC"
	DefaultLookaheadDays = 7
	MaxLookaheadDays     = 60
)

type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

func (telegram TelegramConfig) Enabled() bool {
	return strings.TrimSpace(telegram.BotToken) != "" && telegram.ChatID != 0
}

type Config struct {
	// Listen is the address of the host bridge API.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone that defines calendar days and midnight.
	Timezone string `yaml:"timezone"`

	DBPath string `yaml:"db_path"`

	// SecretKey signs API tokens. Empty means the OS keyring is consulted.
	SecretKey string `yaml:"secret_key,omitempty"`

	// LookaheadDays is how many calendar days from today get per-date reminders.
	LookaheadDays int `yaml:"lookahead_days"`

	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
}

func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".isolog", "config.yaml")
	}
	return filepath.Join(dir, "isolog", "config.yaml")
}

func DefaultConfig() *Config {
	return &Config{
		Listen:        DefaultListen,
		Timezone:      DefaultTimezone,
		DBPath:        filepath.Join("data", "isolog.db"),
		LookaheadDays: DefaultLookaheadDays,
	}
}

// Normalize fills zero values with defaults and clamps the lookahead.
func (c *Config) Normalize() {
	defaults := DefaultConfig()
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = defaults.Listen
	}
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	c.DBPath = strings.TrimSpace(c.DBPath)
	if c.DBPath == "" {
		c.DBPath = defaults.DBPath
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = defaults.LookaheadDays
	}
	if c.LookaheadDays > MaxLookaheadDays {
		c.LookaheadDays = MaxLookaheadDays
	}
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
}

func (c *Config) Location() (*time.Location, error) {
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return location, nil
}

// Load reads the YAML file at path, writing a default one on first run, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overrides file values with the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookupNonEmpty(lookup, "TZ"); ok {
		c.Timezone = value
	}
	if value, ok := lookupNonEmpty(lookup, "DB_PATH"); ok {
		c.DBPath = value
	}
	if value, ok := lookupNonEmpty(lookup, "PORT"); ok {
		host := "127.0.0.1"
		if current := strings.TrimSpace(c.Listen); current != "" {
			if index := strings.LastIndex(current, ":"); index >= 0 {
				host = current[:index]
			}
		}
		c.Listen = host + ":" + value
	}
	if value, ok := lookupNonEmpty(lookup, "SECRET_KEY"); ok {
		c.SecretKey = value
	}
	if value, ok := lookupNonEmpty(lookup, "TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.BotToken = value
	}
	if value, ok := lookupNonEmpty(lookup, "TELEGRAM_CHAT_ID"); ok {
		chatID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = chatID
	}
	if value, ok := lookupNonEmpty(lookup, "ISOLOG_LOOKAHEAD_DAYS"); ok {
		days, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("ISOLOG_LOOKAHEAD_DAYS: %w", err)
		}
		c.LookaheadDays = days
	}
	if value, ok := lookupNonEmpty(lookup, "ISOLOG_DEBUG"); ok {
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ISOLOG_DEBUG: %w", err)
		}
		c.Log.Debug = debug
	}
	return nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".isolog-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
