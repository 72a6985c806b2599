// Package config loads server configuration from defaults and SUBPLOT_*
// environment variables using koanf.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping them onto
// config keys. Double underscore nests: SUBPLOT_AUTH__JWT_SECRET -> auth.jwt_secret.
const EnvPrefix = "SUBPLOT_"

type Config struct {
	Port         string        `koanf:"port"`
	DatabasePath string        `koanf:"database_path"`
	InitTimeout  time.Duration `koanf:"init_timeout"`

	TMDB TMDBConfig `koanf:"tmdb"`
	Auth AuthConfig `koanf:"auth"`
	Log  LogConfig  `koanf:"log"`
	Plex PlexConfig `koanf:"plex"`
}

type TMDBConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// AuthConfig points at the remote auth service. JWTSecret is the HS256
// signing secret the service uses for access tokens.
type AuthConfig struct {
	URL       string `koanf:"url"`
	AnonKey   string `koanf:"anon_key"`
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type PlexConfig struct {
	Enabled bool `koanf:"enabled"`
	Workers int  `koanf:"workers"`
}

func defaults() *Config {
	return &Config{
		Port:         "8080",
		DatabasePath: "./subplot.db",
		InitTimeout:  15 * time.Second,
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
		},
		Auth: AuthConfig{
			Issuer:   "subplot",
			Audience: "authenticated",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Plex: PlexConfig{
			Enabled: true,
			Workers: 2,
		},
	}
}

// Load builds the effective configuration: struct defaults first, then
// environment overrides.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required (SUBPLOT_TMDB__API_KEY)")
	}
	if c.Auth.URL == "" {
		return fmt.Errorf("auth.url is required (SUBPLOT_AUTH__URL)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (SUBPLOT_AUTH__JWT_SECRET)")
	}
	if c.InitTimeout <= 0 {
		return fmt.Errorf("init_timeout must be positive")
	}
	return nil
}
