package config

import (
	"strings"
	"testing"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/pkg/directory"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_AvatarBounds(t *testing.T) {
	cases := map[string]func(*Config){
		"zero picture size": func(c *Config) { c.Avatar.PictureSize = 0 },
		"huge picture size": func(c *Config) { c.Avatar.PictureSize = 10000 },
		"no workers":        func(c *Config) { c.Avatar.Workers = 0 },
		"no queue":          func(c *Config) { c.Avatar.QueueSize = 0 },
		"negative timeout":  func(c *Config) { c.Avatar.FetchTimeout = -1 },
		"zero divisor":      func(c *Config) { c.Cache.BudgetDivisor = 0 },
		"bad sample rate":   func(c *Config) { c.Telemetry.SampleRate = 1.5 },
		"relative metrics":  func(c *Config) { c.Metrics.Path = "metrics" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestValidate_CrossField(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Directory = directory.Config{Type: directory.TypePostgres}
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("Expected directory error, got %v", err)
	}

	cfg = GetDefaultConfig()
	cfg.Telemetry.Profiling.Enabled = true
	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "teleport"}
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for unknown profile type")
	}

	cfg = GetDefaultConfig()
	cfg.Cache.Capacity = 2 * bytesize.MiB
	cfg.Cache.MemoryBudget = bytesize.MiB
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for capacity above budget")
	}
}
