// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authflow.
//
// go-authflow is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Origins  []string       `yaml:"allowed_origins"`
	Ceremony CeremonyConfig `yaml:"ceremony"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	ID            string `yaml:"id"`
	Environment   string `yaml:"environment"`
	CorrelationID string `yaml:"correlation_id"`
}

// CeremonyConfig controls WebAuthn ceremony option defaults
type CeremonyConfig struct {
	RelyingPartyID   string `yaml:"rp_id"`
	RelyingPartyName string `yaml:"rp_name"`
	TimeoutMS        int    `yaml:"timeout_ms"`
}

// SessionConfig controls the JWT session provider
type SessionConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// DefaultConfig returns a configuration with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{Environment: "production"},
		Ceremony: CeremonyConfig{
			TimeoutMS: 120000,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Path: "/metrics", Port: 9090},
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if appID := os.Getenv("AUTHFLOW_APP_ID"); appID != "" {
		cfg.App.ID = appID
	}
	if env := os.Getenv("AUTHFLOW_ENV"); env != "" {
		cfg.App.Environment = env
	}
	if origins := os.Getenv("AUTHFLOW_ALLOWED_ORIGINS"); origins != "" {
		cfg.Origins = strings.Split(origins, ",")
		for i := range cfg.Origins {
			cfg.Origins[i] = strings.TrimSpace(cfg.Origins[i])
		}
	}

	if rpID := os.Getenv("AUTHFLOW_RP_ID"); rpID != "" {
		cfg.Ceremony.RelyingPartyID = rpID
	}
	if timeout := os.Getenv("AUTHFLOW_CEREMONY_TIMEOUT_MS"); timeout != "" {
		ms, err := strconv.Atoi(timeout)
		if err != nil || ms < 1 {
			log.Printf("Warning: invalid AUTHFLOW_CEREMONY_TIMEOUT_MS value %q, using default %d",
				timeout, cfg.Ceremony.TimeoutMS)
		} else {
			cfg.Ceremony.TimeoutMS = ms
		}
	}

	if secret := os.Getenv("AUTHFLOW_JWT_SECRET"); secret != "" {
		cfg.Session.JWTSecret = secret
	}

	if level := os.Getenv("AUTHFLOW_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("AUTHFLOW_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.App.ID == "" {
		return fmt.Errorf("app id must be specified")
	}

	if len(c.Origins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	for _, origin := range c.Origins {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}

	if c.Ceremony.RelyingPartyID == "" {
		return fmt.Errorf("ceremony rp_id must be specified")
	}
	if c.Ceremony.TimeoutMS < 1 {
		return fmt.Errorf("invalid ceremony timeout: %d", c.Ceremony.TimeoutMS)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, error, or fatal)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json, text, or console)", c.Logging.Format)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	return nil
}

// validateOrigin accepts "*", wildcard subdomain patterns and absolute
// https URLs. Plain-http origins are rejected here rather than silently
// dropped at flow start.
func validateOrigin(origin string) error {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return fmt.Errorf("allowed origin must not be blank")
	}
	if origin == "*" || strings.HasPrefix(origin, "*.") {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid allowed origin %q: %w", origin, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("allowed origin %q must use https", origin)
	}
	if u.Host == "" {
		return fmt.Errorf("allowed origin %q has no host", origin)
	}
	return nil
}

// DebugEnabled reports whether debug-level logging is configured.
func (c *Config) DebugEnabled() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}
