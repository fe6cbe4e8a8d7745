package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid log level", func(c *Config) { c.Logging.Level = "LOUD" }, "oneof"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "max"},
		{"bad bind address", func(c *Config) { c.Server.BindAddress = "not-an-ip" }, "ip"},
		{"no workers", func(c *Config) { c.Server.MaxWorkers = 0 }, "min"},
		{"no shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "required"},
		{"negative idle timeout", func(c *Config) { c.Server.IdleTimeout = -1 }, "gte"},
		{"no credentials file", func(c *Config) { c.Auth.CredentialsFile = "" }, "required"},
		{"no attempts", func(c *Config) { c.Auth.MaxAttempts = 0 }, "min"},
		{"no storage root", func(c *Config) { c.Storage.Root = "" }, "required"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"metrics port clash", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = c.Server.Port
		}, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in error, got: %v", tt.want, err)
			}
		})
	}
}
