package config

import (
	"github.com/garyjia/temple-membership/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// Call Validate first; an unparsable fee or time zone falls back to defaults.
func (c *Config) ToContainerConfig() *container.Config {
	defaults := container.DefaultConfig()

	entryFee, err := c.EntryFeeCents()
	if err != nil {
		entryFee = defaults.Workflow.EntryFeeCents
	}
	loc, err := c.Location()
	if err != nil {
		loc = defaults.Workflow.Location
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Workflow: container.WorkflowConfig{
			EntryFeeCents:  entryFee,
			MemberIDPrefix: c.Workflow.MemberIDPrefix,
			HandlerTimeout: c.Workflow.HandlerTimeout,
			Location:       loc,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			ChatID:    c.Lark.ChatID,
			BaseURL:   c.Lark.BaseURL,
			Timeout:   c.Lark.Timeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			RateLimitRPS:    c.RateLimit.RPS,
			RateBurst:       c.RateLimit.Burst,
		},
	}
}
