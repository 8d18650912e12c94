// Package server provides configuration helpers that define runtime defaults
// and environment overrides for the relay service.
package server

import (
	"os"
	"strconv"
	"strings"

	"github.com/Tyrowin/roomrelay/internal/auth"
)

const (
	defaultPort           = ":3000"
	defaultMaxMessageSize = 4096
)

// Config holds the server configuration settings.
type Config struct {
	Port           string
	JWT            auth.JWTConfig
	AllowedOrigins []string
	MaxMessageSize int64
	LogLevel       string
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort,
		JWT:            auth.DefaultJWTConfig(),
		AllowedOrigins: []string{"*"},
		MaxMessageSize: defaultMaxMessageSize,
		LogLevel:       "info",
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = normalizePort(port)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.SecretKey = secret
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return &cfg
}

// Sanitized returns a copy of cfg with empty or invalid fields replaced by
// their defaults.
func (c Config) Sanitized() Config {
	def := defaultConfig()

	if c.Port == "" {
		c.Port = def.Port
	}
	c.Port = normalizePort(c.Port)

	if c.JWT.SecretKey == "" {
		c.JWT.SecretKey = def.JWT.SecretKey
	}
	if c.JWT.TokenDuration <= 0 {
		c.JWT.TokenDuration = def.JWT.TokenDuration
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// normalizePort accepts "3000" or ":3000" and returns the listen address form.
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}
