package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PendingTTL time.Duration `yaml:"pending_ttl"` // pending-activation window
}

type MpesaConfig struct {
	BaseURL        string        `yaml:"base_url"` // sandbox or production Daraja host
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	Shortcode      string        `yaml:"shortcode"`
	Passkey        string        `yaml:"passkey"`
	CallbackURL    string        `yaml:"callback_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RouterConfig struct {
	DefaultPort        int           `yaml:"default_port"` // RouterOS API-SSL
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // self-signed router certs
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 16/24/32 bytes, AES-GCM
	JWTSecret     string `yaml:"jwt_secret"`     // HS256 secret for admin tokens
}

type SchedConfig struct {
	ExpiryCron string `yaml:"expiry_cron"` // cron spec for the session expiry sweep
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mpesa    MpesaConfig    `yaml:"mpesa"`
	Router   RouterConfig   `yaml:"router"`
	Security SecurityConfig `yaml:"security"`
	Sched    SchedConfig    `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.PendingTTL <= 0 {
		cfg.Redis.PendingTTL = 10 * time.Minute
	}
	if cfg.Mpesa.BaseURL == "" {
		cfg.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if cfg.Mpesa.Timeout <= 0 {
		cfg.Mpesa.Timeout = 30 * time.Second
	}
	if cfg.Router.DefaultPort == 0 {
		cfg.Router.DefaultPort = 8729
	}
	if cfg.Router.DialTimeout <= 0 {
		cfg.Router.DialTimeout = 10 * time.Second
	}
	if cfg.Sched.ExpiryCron == "" {
		cfg.Sched.ExpiryCron = "*/1 * * * *"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Mpesa.ConsumerKey == "" || cfg.Mpesa.ConsumerSecret == "" {
		return nil, errors.New("mpesa.consumer_key and mpesa.consumer_secret are required")
	}
	if cfg.Mpesa.Shortcode == "" || cfg.Mpesa.Passkey == "" {
		return nil, errors.New("mpesa.shortcode and mpesa.passkey are required")
	}
	if cfg.Mpesa.CallbackURL == "" {
		return nil, errors.New("mpesa.callback_url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
