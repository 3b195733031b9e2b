// Package config provides configuration for the trainchat server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int    `koanf:"http.port"`
	LogLevel string `koanf:"log.level"`

	// Database
	DatabaseDSN string `koanf:"database.dsn"`

	// Auth
	JWTSecret string        `koanf:"jwt.secret"`
	TokenTTL  time.Duration `koanf:"jwt.ttl"`

	// Dify AI provider. All three must be set to activate the provider path;
	// otherwise the local fallback generator is used.
	DifyBaseURL string `koanf:"dify.baseurl"`
	DifyAPIKey  string `koanf:"dify.apikey"`
	DifyAppID   string `koanf:"dify.appid"`

	// Fallback streaming emulation
	FallbackChunkSize int           `koanf:"fallback.chunksize"`
	FallbackDelay     time.Duration `koanf:"fallback.delay"`
}

// Load loads configuration from defaults overlaid with TRAINCHAT_-prefixed
// environment variables (TRAINCHAT_DIFY_APIKEY -> dify.apikey, etc).
func Load() (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"http.port":          8080,
		"log.level":          "info",
		"database.dsn":       "file:trainchat.db?cache=shared&mode=rwc",
		"jwt.secret":         "",
		"jwt.ttl":            (7 * 24 * time.Hour).String(),
		"dify.baseurl":       "https://api.dify.ai/v1",
		"dify.apikey":        "",
		"dify.appid":         "",
		"fallback.chunksize": 10,
		"fallback.delay":     "50ms",
	}, "."), nil)

	if err := k.Load(env.Provider("TRAINCHAT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TRAINCHAT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	// Config is a flat struct with dotted tags, so the decode must run over
	// flattened paths rather than koanf's nested map.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (set TRAINCHAT_JWT_SECRET)")
	}

	return &cfg, nil
}

// ProviderConfigured reports whether the Dify provider path is active.
// All three fields are required together; absence of any one selects the
// local fallback.
func (c *Config) ProviderConfigured() bool {
	return c.DifyBaseURL != "" && c.DifyAPIKey != "" && c.DifyAppID != ""
}
