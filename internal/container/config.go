// Package container provides dependency injection and lifecycle management
// for the membership workflow service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/temple-membership/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow configuration
	Workflow WorkflowConfig

	// Lark API configuration
	Lark LarkConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded schema when set
	MigrationsDir string
}

// WorkflowConfig holds membership workflow settings.
type WorkflowConfig struct {
	// EntryFeeCents is the fee charged on submission
	EntryFeeCents int64

	// MemberIDPrefix prefixes generated permanent member IDs
	MemberIDPrefix string

	// HandlerTimeout bounds each asynchronous event handler
	HandlerTimeout time.Duration

	// Location is the time zone of exported register dates
	Location *time.Location
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled routes notifications to a Lark chat instead of the log
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// ChatID is the committee chat receiving notifications
	ChatID string

	// BaseURL overrides the open platform domain
	BaseURL string

	// Timeout for API calls
	Timeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateBurst       int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/membership.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			EntryFeeCents:  entity.DefaultEntryFeeCents,
			MemberIDPrefix: "TM",
			HandlerTimeout: 10 * time.Second,
			Location:       time.Local,
		},
		Lark: LarkConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    20,
			RateBurst:       40,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Workflow.EntryFeeCents <= 0 {
		return fmt.Errorf("workflow.entry_fee must be positive")
	}

	// Validate Lark configuration
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
		if c.Lark.ChatID == "" {
			return fmt.Errorf("lark.chat_id is required")
		}
	}

	return nil
}
