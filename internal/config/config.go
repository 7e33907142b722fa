package config

import (
	"time"
)

// Config represents the complete server configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Pathfinder PathfinderConfig `yaml:"pathfinder"`
	RiskData   RiskDataConfig   `yaml:"risk_data"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Navigation NavigationConfig `yaml:"navigation"`
	Messaging  MessagingConfig  `yaml:"messaging"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CorsOrigins []string `yaml:"cors_origins"`
}

// PathfinderConfig holds the external pathfinding service settings
type PathfinderConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	RouteTTL time.Duration `yaml:"route_ttl"`
}

// RiskDataConfig holds risk region source settings. When PostgresDSN is set
// the Postgres store is used; otherwise regions come from the KML feed.
type RiskDataConfig struct {
	FeedURL       string        `yaml:"feed_url"`
	PostgresDSN   string        `yaml:"postgres_dsn"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	RetentionDays int           `yaml:"retention_days"`
}

// AlertsConfig holds warning enhancement settings
type AlertsConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
}

// NavigationConfig holds session management settings
type NavigationConfig struct {
	// TrafficCheckInterval drives the periodic alternative-route check for
	// active sessions
	TrafficCheckInterval time.Duration `yaml:"traffic_check_interval"`
	// SessionIdleTimeout evicts sessions that stop receiving position
	// updates without an explicit end
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// MessagingConfig holds RabbitMQ settings. An empty URL disables event
// publishing.
type MessagingConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CorsOrigins: []string{"*"},
		},
		Pathfinder: PathfinderConfig{
			BaseURL:  "https://pathfinder.internal",
			RouteTTL: 5 * time.Minute,
		},
		RiskData: RiskDataConfig{
			RefreshTTL:    15 * time.Minute,
			RetentionDays: 30,
		},
		Alerts: AlertsConfig{
			OpenAIModel: "gpt-4o-mini",
		},
		Navigation: NavigationConfig{
			TrafficCheckInterval: 2 * time.Minute,
			SessionIdleTimeout:   30 * time.Minute,
		},
	}
}
