package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Scene    SceneConfig    `json:"scene"`
	Status   StatusConfig   `json:"status"`
	Gateway  GatewayConfig  `json:"gateway"`
	Database DatabaseConfig `json:"database"`
}

type ServerConfig struct {
	Addr        string   `json:"addr"`
	LogLevel    string   `json:"log_level"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

type SceneConfig struct {
	Registry string `json:"registry,omitempty"` // empty uses the built-in office
	FrameMs  int    `json:"frame_ms"`
	Seed     int64  `json:"seed,omitempty"` // 0 seeds from the clock
}

type StatusConfig struct {
	SourceURL      string           `json:"source_url,omitempty"` // remote aggregated endpoint; empty aggregates locally
	PollSeconds    int              `json:"poll_seconds"`
	TimeoutSeconds int              `json:"timeout_seconds"`
	Cloudflare     CloudflareConfig `json:"cloudflare"`
}

type CloudflareConfig struct {
	AccountID string `json:"account_id"`
	APIToken  string `json:"api_token"`
	Endpoint  string `json:"endpoint,omitempty"`
}

type GatewayConfig struct {
	CooldownSeconds int                  `json:"cooldown_seconds"`
	Slack           SlackGatewayConfig   `json:"slack"`
	Discord         DiscordGatewayConfig `json:"discord"`
	Webhook         WebhookGatewayConfig `json:"webhook"`
}

type SlackGatewayConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type DiscordGatewayConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type WebhookGatewayConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
	// Migrations, when set, is a directory of *.up.sql files used instead of
	// the migrations built into the binary.
	Migrations string `json:"migrations"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL    string `json:"url"`
	Stream string `json:"stream,omitempty"`
}

// Default returns the configuration used when no file is present. Every
// backing service is left unset so the dashboard runs standalone.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Scene.FrameMs == 0 {
		c.Scene.FrameMs = 16
	}
	if c.Status.PollSeconds == 0 {
		c.Status.PollSeconds = 30
	}
	if c.Status.TimeoutSeconds == 0 {
		c.Status.TimeoutSeconds = 10
	}
	if c.Gateway.CooldownSeconds == 0 {
		c.Gateway.CooldownSeconds = 600
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Scene.FrameMs < 0 {
		errs = append(errs, fmt.Errorf("scene.frame_ms must be positive"))
	}
	if c.Status.PollSeconds < 0 || c.Status.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("status intervals must be positive"))
	}
	if c.Gateway.Slack.Enabled && (c.Gateway.Slack.BotToken == "" || c.Gateway.Slack.ChannelID == "") {
		errs = append(errs, fmt.Errorf("gateway.slack needs bot_token and channel_id"))
	}
	if c.Gateway.Discord.Enabled && (c.Gateway.Discord.BotToken == "" || c.Gateway.Discord.ChannelID == "") {
		errs = append(errs, fmt.Errorf("gateway.discord needs bot_token and channel_id"))
	}
	if c.Gateway.Webhook.Enabled && c.Gateway.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("gateway.webhook needs url"))
	}
	if cf := c.Status.Cloudflare; (cf.AccountID == "") != (cf.APIToken == "") {
		errs = append(errs, fmt.Errorf("status.cloudflare needs both account_id and api_token"))
	}
	return errors.Join(errs...)
}

// FrameInterval is the animation tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Scene.FrameMs) * time.Millisecond
}

// PollInterval is the status refresh period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Status.PollSeconds) * time.Second
}

// Timeout bounds a single status or analytics request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Status.TimeoutSeconds) * time.Second
}

// Cooldown is how long a repeated alert stays muted.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Gateway.CooldownSeconds) * time.Second
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON config after environment substitution, then fills in
// defaults and validates.
func Parse(data []byte) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
