// Package config loads agentgraph's runtime configuration from .env,
// environment variables, and CLI flags, following the
// godotenv+viper+cobra pairing 88lin-divinesense uses for its server
// binary.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for one
// cmd/agentgraph invocation.
type Config struct {
	// Provider credentials. Empty means that backend is never
	// registered — a workflow that never routes to it doesn't need one.
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	BedrockRegion   string

	// Store selects the snapshot/checkpoint backend: "memory" (default),
	// "sqlite", or "mysql".
	StoreDriver string
	StoreDSN    string

	// MaxConcurrentNodes bounds the traffic controller's admission slots.
	MaxConcurrentNodes int

	// ToolBaseDir scopes every node's sandboxed filesystem/shell access.
	ToolBaseDir string

	// TelegramBotToken and DiscordWebhookAddr configure the optional
	// trigger-kind integrations; both may be left empty.
	TelegramBotToken    string
	DiscordWebhookAddr  string

	// PrometheusAddr, left empty, disables the metrics HTTP endpoint.
	PrometheusAddr string
}

// Defaults returns a Config with the same fallbacks the CLI's viper
// bindings apply when nothing overrides them.
func Defaults() Config {
	return Config{
		StoreDriver:        "memory",
		MaxConcurrentNodes: 8,
		ToolBaseDir:        "./agentgraph-data",
	}
}

// Load reads .env (if present, ignored if missing — local dev
// convenience only, mirroring divinesense's non-systemd load path),
// then layers environment variables over Defaults via viper.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("agentgraph")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	cfg := Defaults()

	bind := func(key string) string {
		_ = v.BindEnv(key)
		return v.GetString(key)
	}

	if s := bind("anthropic_api_key"); s != "" {
		cfg.AnthropicAPIKey = s
	}
	if s := bind("openai_api_key"); s != "" {
		cfg.OpenAIAPIKey = s
	}
	if s := bind("google_api_key"); s != "" {
		cfg.GoogleAPIKey = s
	}
	if s := bind("bedrock_region"); s != "" {
		cfg.BedrockRegion = s
	}
	if s := bind("store_driver"); s != "" {
		cfg.StoreDriver = s
	}
	if s := bind("store_dsn"); s != "" {
		cfg.StoreDSN = s
	}
	if s := bind("tool_base_dir"); s != "" {
		cfg.ToolBaseDir = s
	}
	if s := bind("telegram_bot_token"); s != "" {
		cfg.TelegramBotToken = s
	}
	if s := bind("discord_webhook_addr"); s != "" {
		cfg.DiscordWebhookAddr = s
	}
	if s := bind("prometheus_addr"); s != "" {
		cfg.PrometheusAddr = s
	}
	if n := v.GetInt("max_concurrent_nodes"); n > 0 {
		cfg.MaxConcurrentNodes = n
	}

	return cfg, nil
}

// Validate reports a configuration error a CLI user should fix before
// attempting a run — e.g. a store driver that needs a DSN it wasn't given.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "sqlite", "mysql":
		if c.StoreDSN == "" {
			return fmt.Errorf("config: store_driver %q requires store_dsn", c.StoreDriver)
		}
	default:
		return fmt.Errorf("config: unknown store_driver %q (want memory, sqlite, or mysql)", c.StoreDriver)
	}
	if c.MaxConcurrentNodes <= 0 {
		return fmt.Errorf("config: max_concurrent_nodes must be positive, got %d", c.MaxConcurrentNodes)
	}
	return nil
}
