package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SessionCookie string        `yaml:"session_cookie"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
	Log           Log           `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() Config {
	return Config{
		Addr:          ":8080",
		DBPath:        "fritter.db",
		SessionTTL:    24 * time.Hour,
		SessionCookie: "fritter_session",
		BcryptCost:    bcrypt.DefaultCost,
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load reads the optional YAML file named by FRITTER_CONFIG, then applies
// environment overrides on top.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("FRITTER_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	addr := envString("FRITTER_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = cfg.Addr
		}
	}
	cfg.Addr = addr
	cfg.DBPath = envString("FRITTER_DB", cfg.DBPath)
	cfg.SessionTTL = envDuration("FRITTER_SESSION_TTL", cfg.SessionTTL)
	cfg.SessionCookie = envString("FRITTER_SESSION_COOKIE", cfg.SessionCookie)
	cfg.BcryptCost = envInt("FRITTER_BCRYPT_COST", cfg.BcryptCost)
	cfg.Log.Level = envString("FRITTER_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("FRITTER_LOG_FORMAT", cfg.Log.Format)

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.SessionCookie == "" {
		errs = append(errs, errors.New("session cookie name must not be empty"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
