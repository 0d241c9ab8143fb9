package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port        int    `toml:"port"`
	BodyLimitMB int    `toml:"body_limit_mb"` // inline images travel in the JSON body
	Language    string `toml:"language"`      // default response language
	LogLevel    string `toml:"log_level"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

type UploadsConfig struct {
	Dir      string `toml:"dir"`       // public upload directory
	BaseURL  string `toml:"base_url"`  // URL the upload directory is served under
	MaxWidth uint   `toml:"max_width"` // 0 keeps images untouched
}

type SMTPConfig struct {
	Server      string `toml:"server"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	From        string `toml:"from"`
	FromName    string `toml:"from_name"`
	UseSTARTTLS bool   `toml:"use_starttls"` // true for port 587, false for port 465
}

type JWTConfig struct {
	Secret string `toml:"secret"` // HS256 key shared with the token issuer
}

type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
}

type RecoverConfig struct {
	Cooldown Duration `toml:"cooldown"` // minimum time between two resets of one account
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Uploads   UploadsConfig   `toml:"uploads"`
	SMTP      SMTPConfig      `toml:"smtp"`
	JWT       JWTConfig       `toml:"jwt"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Recover   RecoverConfig   `toml:"recover"`
}

// Duration decodes TOML strings such as "90s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.BodyLimitMB = 16
	config.Server.Language = "es"
	config.Server.LogLevel = "info"

	config.Storage.DataDir = "./data"

	config.Uploads.Dir = "./uploads"
	config.Uploads.BaseURL = "http://localhost:3000/uploads"

	config.SMTP.Port = 587 // Default to STARTTLS port
	config.SMTP.UseSTARTTLS = true
	config.SMTP.FromName = "App Color Expression"

	config.RateLimit.Requests = 30
	config.RateLimit.Window = Duration{time.Minute}

	config.Recover.Cooldown = Duration{5 * time.Minute}

	return &config
}

func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	// Load config file
	if _, err := toml.DecodeFile(filepath, config); err != nil {
		return nil, err
	}

	config.Uploads.BaseURL = strings.TrimRight(config.Uploads.BaseURL, "/")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.Language != "es" && c.Server.Language != "en" {
		return fmt.Errorf("unsupported server language %q", c.Server.Language)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}
	if c.Uploads.Dir == "" || c.Uploads.BaseURL == "" {
		return fmt.Errorf("uploads dir and base_url are required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("rate_limit requests and window must be positive")
	}
	return nil
}

// Helper method to get the appropriate SMTP port based on encryption
func (c *SMTPConfig) GetPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.UseSTARTTLS {
		return 587 // STARTTLS port
	}
	return 465 // SSL/TLS port
}
